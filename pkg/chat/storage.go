package chat

import (
	"context"

	"github.com/serenique/serenique-server/pkg/db"
	"github.com/serenique/serenique-server/pkg/insight"
	"github.com/serenique/serenique-server/pkg/persona"
)

// Storage is everything the chat service needs from the store. *db.Store
// satisfies it; tests swap in fakes.
type Storage interface {
	PutPersona(ctx context.Context, userID string, profile persona.PersonalityProfile) error
	GetPersona(ctx context.Context, userID string) (persona.PersonalityProfile, error)
	GetLiveState(ctx context.Context, userID string) (persona.LiveUserState, error)
	PutLiveState(ctx context.Context, userID string, state persona.LiveUserState) error

	AppendMessage(ctx context.Context, msg db.ChatMessage) error
	GetRecentMessages(ctx context.Context, userID string, limit int) ([]db.ChatMessage, error)
	ClearMessages(ctx context.Context, userID string) (int64, error)

	AppendInsight(ctx context.Context, userID string, ins insight.Insight) error
	GetRecentInsights(ctx context.Context, userID string, limit int) ([]insight.Insight, error)
	DeleteInsight(ctx context.Context, userID string, insightID string) error
	InsightStats(ctx context.Context, userID string) (map[insight.Type]int, error)
}

var _ Storage = (*db.Store)(nil)
