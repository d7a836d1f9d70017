package chat

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/samber/lo"

	"github.com/serenique/serenique-server/pkg/db"
	"github.com/serenique/serenique-server/pkg/insight"
	"github.com/serenique/serenique-server/pkg/persona"
)

// fakeStore is an in-memory Storage with call counters.
type fakeStore struct {
	mu sync.Mutex

	personas map[string]persona.PersonalityProfile
	states   map[string]persona.LiveUserState
	messages map[string][]db.ChatMessage
	insights map[string][]insight.Insight

	historyCalls int
	historyErr   error
	onHistory    func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		personas: map[string]persona.PersonalityProfile{},
		states:   map[string]persona.LiveUserState{},
		messages: map[string][]db.ChatMessage{},
		insights: map[string][]insight.Insight{},
	}
}

func (f *fakeStore) PutPersona(_ context.Context, userID string, profile persona.PersonalityProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.personas[userID] = profile
	return nil
}

func (f *fakeStore) GetPersona(_ context.Context, userID string) (persona.PersonalityProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.personas[userID]
	if !ok {
		return persona.PersonalityProfile{}, db.ErrNotFound
	}
	return profile, nil
}

func (f *fakeStore) PutLiveState(_ context.Context, userID string, state persona.LiveUserState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[userID] = state
	return nil
}

func (f *fakeStore) GetLiveState(_ context.Context, userID string) (persona.LiveUserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[userID]
	if !ok {
		return persona.LiveUserState{}, db.ErrNotFound
	}
	return state, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, msg db.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.UserID] = append(f.messages[msg.UserID], msg)
	return nil
}

func (f *fakeStore) GetRecentMessages(_ context.Context, userID string, limit int) ([]db.ChatMessage, error) {
	f.mu.Lock()
	f.historyCalls++
	hook := f.onHistory
	err := f.historyErr
	all := append([]db.ChatMessage(nil), f.messages[userID]...)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeStore) ClearMessages(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := int64(len(f.messages[userID]))
	delete(f.messages, userID)
	return deleted, nil
}

func (f *fakeStore) AppendInsight(_ context.Context, userID string, ins insight.Insight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights[userID] = append(f.insights[userID], ins)
	return nil
}

func (f *fakeStore) GetRecentInsights(_ context.Context, userID string, limit int) ([]insight.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recent := lo.Reverse(append([]insight.Insight(nil), f.insights[userID]...))
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

func (f *fakeStore) DeleteInsight(_ context.Context, userID, insightID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ins := range f.insights[userID] {
		if ins.ID == insightID {
			f.insights[userID] = append(f.insights[userID][:i], f.insights[userID][i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) InsightStats(_ context.Context, userID string) (map[insight.Type]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := map[insight.Type]int{}
	for _, t := range insight.Types {
		stats[t] = 0
	}
	for _, ins := range f.insights[userID] {
		stats[ins.Type]++
	}
	return stats, nil
}

func (f *fakeStore) historyCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls
}

// fakeCompletion replays a canned reply and records what it was asked.
type fakeCompletion struct {
	mu       sync.Mutex
	reply    string
	err      error
	received [][]openai.ChatCompletionMessageParamUnion
}

func (f *fakeCompletion) Completions(_ context.Context, messages []openai.ChatCompletionMessageParamUnion, _ string) (openai.ChatCompletionMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, messages)
	if f.err != nil {
		return openai.ChatCompletionMessage{}, f.err
	}
	return openai.ChatCompletionMessage{Content: f.reply}, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func seedPersona(store *fakeStore, userID string) {
	store.personas[userID] = persona.PersonalityProfile{
		CommunicationStyle:  persona.CommunicationBalanced,
		PrimaryStressor:     persona.StressorAcademics,
		SocialProfile:       persona.SocialAmbiverted,
		CopingMechanism:     persona.CopingMixed,
		StressLevel:         persona.StressModerate,
		Strengths:           []string{"Willing to reflect on their own wellbeing"},
		Vulnerabilities:     []string{"Prone to academic pressure and deadline anxiety"},
		RecommendedApproach: "Integrative approach mixing CBT tools with emotion-focused support",
		ChatbotTone:         "supportive and adaptable",
		ChatbotMethodology:  "blended validation-first guidance",
		ChatbotSystemPrompt: "Adapt to the user's balanced style.",
		GeneratedAt:         time.Now().UTC(),
		QuizVersion:         "1.0",
	}
	store.states[userID] = persona.NewLiveUserState()
}
