package chat

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/serenique/serenique-server/pkg/db"
	"github.com/serenique/serenique-server/pkg/helpers"
	"github.com/serenique/serenique-server/pkg/insight"
	"github.com/serenique/serenique-server/pkg/persona"
	"github.com/serenique/serenique-server/pkg/prompts"
)

// ErrNoPersona means the user has not completed the onboarding quiz yet.
var ErrNoPersona = errors.New("no persona generated for user")

// ConversationContext is everything a single turn is grounded on, in the
// order it is rendered: static profile, then live state, then long-term
// insights, then recent history.
type ConversationContext struct {
	Profile   persona.PersonalityProfile
	LiveState persona.LiveUserState
	Insights  []insight.Insight
	History   []db.ChatMessage
}

// Composer assembles the per-turn conversation context and renders it
// into the message list sent to the model.
type Composer struct {
	store        Storage
	cache        *HistoryCache
	historyLimit int
	insightLimit int
}

func NewComposer(store Storage, cache *HistoryCache, historyLimit, insightLimit int) *Composer {
	return &Composer{
		store:        store,
		cache:        cache,
		historyLimit: historyLimit,
		insightLimit: insightLimit,
	}
}

// BuildContext loads the four context tiers for one user. A missing
// persona is ErrNoPersona; a missing live state falls back to fresh
// defaults; store failures on any tier abort the turn.
func (c *Composer) BuildContext(ctx context.Context, userID string) (ConversationContext, error) {
	profile, err := c.store.GetPersona(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ConversationContext{}, errors.Wrapf(ErrNoPersona, "user %s", userID)
		}
		return ConversationContext{}, errors.Wrap(err, "loading persona")
	}

	state, err := c.store.GetLiveState(ctx, userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return ConversationContext{}, errors.Wrap(err, "loading live state")
		}
		state = persona.NewLiveUserState()
	}

	insights, err := c.store.GetRecentInsights(ctx, userID, c.insightLimit)
	if err != nil {
		return ConversationContext{}, errors.Wrap(err, "loading insights")
	}

	history, err := c.cache.Get(ctx, userID, c.historyLimit)
	if err != nil {
		return ConversationContext{}, errors.Wrap(err, "loading history")
	}

	return ConversationContext{
		Profile:   profile,
		LiveState: state,
		Insights:  insights,
		History:   history,
	}, nil
}

// Render turns the context plus the incoming user message into the
// message list for the completions call: one system message carrying
// profile, live state and insights, then history oldest first, then the
// new message.
func (c *Composer) Render(convCtx ConversationContext, userMessage string) ([]openai.ChatCompletionMessageParamUnion, error) {
	systemPrompt, err := RenderSystemPrompt(convCtx)
	if err != nil {
		return nil, err
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(convCtx.History)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, msg := range convCtx.History {
		if msg.Role == db.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userMessage))
	return messages, nil
}

// RenderSystemPrompt renders the system prompt for a context.
func RenderSystemPrompt(convCtx ConversationContext) (string, error) {
	profile := convCtx.Profile
	state := convCtx.LiveState

	lines := lo.Map(convCtx.Insights, func(ins insight.Insight, _ int) prompts.InsightLine {
		return prompts.InsightLine{
			Type:     string(ins.Type),
			Content:  ins.Content,
			Original: helpers.Truncate(ins.OriginalMessage, 80),
			When:     ins.Timestamp.Format("Jan 02, 3:04 PM"),
		}
	})

	prompt, err := prompts.BuildChatSystemPrompt(prompts.ChatSystemPrompt{
		PersonaPrompt:       profile.ChatbotSystemPrompt,
		CommunicationStyle:  string(profile.CommunicationStyle),
		PrimaryStressor:     string(profile.PrimaryStressor),
		SocialProfile:       string(profile.SocialProfile),
		CopingMechanism:     string(profile.CopingMechanism),
		StressLevel:         string(profile.StressLevel),
		Strengths:           profile.Strengths,
		Vulnerabilities:     profile.Vulnerabilities,
		RecommendedApproach: profile.RecommendedApproach,
		ChatbotTone:         profile.ChatbotTone,
		ChatbotMethodology:  profile.ChatbotMethodology,
		CurrentMood:         string(state.CurrentMood),
		LastInteraction:     state.LastInteraction,
		LastInteractionTime: state.LastInteractionTimestamp.Format("Jan 02, 3:04 PM"),
		ChatMessageCount:    state.ChatMessageCount,
		ToolUsageCount:      state.ToolUsageCount,
		SleepLogsCount:      state.SleepLogsCount,
		RecentStressors:     state.RecentStressors,
		CopingSuccesses:     state.CopingSuccesses,
		NeedsCheckIn:        state.NeedsCheckIn,
		Insights:            lines,
	})
	if err != nil {
		return "", errors.Wrap(err, "rendering system prompt")
	}
	return prompt, nil
}
