package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/serenique/serenique-server/pkg/ai"
	"github.com/serenique/serenique-server/pkg/db"
	"github.com/serenique/serenique-server/pkg/helpers"
	"github.com/serenique/serenique-server/pkg/insight"
	"github.com/serenique/serenique-server/pkg/persona"
	"github.com/serenique/serenique-server/pkg/wellness"
)

// ErrEmptyCompletion means the model call succeeded but produced no text.
var ErrEmptyCompletion = errors.New("model returned an empty reply")

// ErrGenerationFailed wraps completions API failures so the edge can
// tell them apart from store outages.
var ErrGenerationFailed = errors.New("reply generation failed")

// Reply is the outcome of one chat turn.
type Reply struct {
	Response        string   `json:"response"`
	InsightsSaved   int      `json:"insights_saved"`
	CrisisDetected  bool     `json:"crisis_detected"`
	CrisisResources []string `json:"crisis_resources,omitempty"`
	NeedsCheckIn    bool     `json:"needs_check_in"`
}

// Service runs a full chat turn: build context, generate a reply,
// persist the exchange, extract insights and update the live state.
type Service struct {
	logger      *log.Logger
	store       Storage
	cache       *HistoryCache
	composer    *Composer
	completions ai.Completion
	model       string
	filter      *insight.Filter
	nc          *nats.Conn

	now func() time.Time
}

func NewService(
	logger *log.Logger,
	store Storage,
	cache *HistoryCache,
	composer *Composer,
	completions ai.Completion,
	model string,
	filter *insight.Filter,
	nc *nats.Conn,
) *Service {
	return &Service{
		logger:      logger,
		store:       store,
		cache:       cache,
		composer:    composer,
		completions: completions,
		model:       model,
		filter:      filter,
		nc:          nc,
		now:         time.Now,
	}
}

// SendMessage runs one turn for the user. The conversation is persisted
// and the history cache invalidated before the reply is returned, so an
// immediate follow-up read sees this exchange.
func (s *Service) SendMessage(ctx context.Context, userID, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("message is empty")
	}

	convCtx, err := s.composer.BuildContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	renderedMessages, err := s.composer.Render(convCtx, message)
	if err != nil {
		return nil, err
	}

	completion, err := s.completions.Completions(ctx, renderedMessages, s.model)
	if err != nil {
		return nil, errors.Wrapf(ErrGenerationFailed, "%v", err)
	}
	response := strings.TrimSpace(completion.Content)
	if response == "" {
		return nil, ErrEmptyCompletion
	}

	userAt := s.now().UTC()
	assistantAt := userAt.Add(time.Millisecond)

	userMsg := db.ChatMessage{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      db.RoleUser,
		Content:   message,
		Mood:      helpers.Ptr(string(convCtx.LiveState.CurrentMood)),
		CreatedAt: userAt,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, errors.Wrap(err, "persisting user message")
	}

	assistantMsg := db.ChatMessage{
		ID:         uuid.New().String(),
		UserID:     userID,
		Role:       db.RoleAssistant,
		Content:    response,
		Model:      helpers.Ptr(s.model),
		ToolScores: wellness.RecommendTools(convCtx.LiveState.CurrentMood, convCtx.Profile.PrimaryStressor),
		CreatedAt:  assistantAt,
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, errors.Wrap(err, "persisting assistant message")
	}

	// Both writes are durable, so drop the cached history now. Doing it
	// the other way round would let a stale entry outlive the write.
	s.cache.Invalidate(userID)

	saved, crisisDetected, err := s.persistInsights(ctx, userID, message, response, userAt)
	if err != nil {
		return nil, err
	}

	nextState, err := s.updateLiveState(ctx, userID, convCtx.LiveState, message, crisisDetected)
	if err != nil {
		return nil, err
	}

	s.publishAssistantMessage(userID, assistantMsg)

	reply := &Reply{
		Response:       response,
		InsightsSaved:  saved,
		CrisisDetected: crisisDetected,
		NeedsCheckIn:   nextState.NeedsCheckIn,
	}
	if crisisDetected {
		reply.CrisisResources = wellness.CrisisResources
	}
	return reply, nil
}

// persistInsights runs the extractor over the exchange and stores every
// candidate that survives the dedup filter. Crisis insights always
// persist; a crisis anywhere in the turn is reported back to the caller.
func (s *Service) persistInsights(ctx context.Context, userID, message, response string, at time.Time) (int, bool, error) {
	candidates := insight.Extract(message, response, at)
	if len(candidates) == 0 {
		return 0, false, nil
	}

	recent, err := s.store.GetRecentInsights(ctx, userID, s.filter.DedupWindow)
	if err != nil {
		return 0, false, errors.Wrap(err, "loading recent insights")
	}

	saved := 0
	crisisDetected := false
	for _, candidate := range candidates {
		if candidate.Type == insight.TypeCrisis {
			crisisDetected = true
		}
		if !s.filter.ShouldPersist(candidate, recent) {
			continue
		}
		candidate.ID = uuid.New().String()
		if err := s.store.AppendInsight(ctx, userID, candidate); err != nil {
			return saved, crisisDetected, errors.Wrap(err, "persisting insight")
		}
		// Newly stored insights count against later candidates in the
		// same turn.
		recent = append([]insight.Insight{candidate}, recent...)
		saved++
	}

	if saved > 0 {
		s.logger.Info("insights saved", "user_id", userID, "count", saved)
	}
	return saved, crisisDetected, nil
}

func (s *Service) updateLiveState(ctx context.Context, userID string, current persona.LiveUserState, message string, crisisDetected bool) (persona.LiveUserState, error) {
	action := persona.Action{
		Type:           persona.ActionChatMessage,
		Content:        message,
		CrisisDetected: crisisDetected,
	}
	if strings.Contains(strings.ToLower(message), "stress") {
		action.StressorDetected = "general stress"
	}

	next := persona.Apply(current, action, s.now())
	if err := s.store.PutLiveState(ctx, userID, next); err != nil {
		return next, errors.Wrap(err, "persisting live state")
	}
	return next, nil
}

// publishAssistantMessage pushes the reply onto the per-user subject.
// The exchange is already durable at this point, so a bus failure is
// logged and the turn still succeeds.
func (s *Service) publishAssistantMessage(userID string, msg db.ChatMessage) {
	if s.nc == nil {
		return
	}
	subject := fmt.Sprintf("chat.%s", userID)
	if err := helpers.NatsPublish(s.nc, subject, msg); err != nil {
		s.logger.Warn("failed to publish assistant message", "subject", subject, "error", err)
	}
}

// History returns the user's recent messages through the cache.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]db.ChatMessage, error) {
	return s.cache.Get(ctx, userID, limit)
}

// ClearHistory deletes the user's conversation and drops their cache
// entries. Insights are long-term memory and survive.
func (s *Service) ClearHistory(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.store.ClearMessages(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "clearing history")
	}
	s.cache.Invalidate(userID)
	return deleted, nil
}

// Insights returns the user's recent insights, most recent first.
func (s *Service) Insights(ctx context.Context, userID string, limit int) ([]insight.Insight, error) {
	return s.store.GetRecentInsights(ctx, userID, limit)
}

// DeleteInsight removes one insight by ID.
func (s *Service) DeleteInsight(ctx context.Context, userID, insightID string) error {
	return s.store.DeleteInsight(ctx, userID, insightID)
}

// InsightStats returns per-type insight counts for the user.
func (s *Service) InsightStats(ctx context.Context, userID string) (map[insight.Type]int, error) {
	return s.store.InsightStats(ctx, userID)
}

// CacheStats exposes the history cache counters.
func (s *Service) CacheStats() Stats {
	return s.cache.Stats()
}
