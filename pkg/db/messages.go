package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a per-user, append-only conversation log.
type ChatMessage struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	Role       string             `json:"role"`
	Content    string             `json:"content"`
	Mood       *string            `json:"mood,omitempty"`
	Model      *string            `json:"model,omitempty"`
	ToolScores map[string]float64 `json:"tool_scores,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// messageRow is the db-mapped shape; timestamps are stored as RFC3339
// strings.
type messageRow struct {
	ID            string  `db:"id"`
	UserID        string  `db:"user_id"`
	Role          string  `db:"role"`
	Content       string  `db:"content"`
	Mood          *string `db:"mood"`
	Model         *string `db:"model"`
	ToolScoresStr *string `db:"tool_scores"`
	CreatedAtStr  string  `db:"created_at"`
}

func (m *messageRow) toModel() ChatMessage {
	msg := ChatMessage{
		ID:      m.ID,
		UserID:  m.UserID,
		Role:    m.Role,
		Content: m.Content,
		Mood:    m.Mood,
		Model:   m.Model,
	}
	if m.ToolScoresStr != nil {
		if err := json.Unmarshal([]byte(*m.ToolScoresStr), &msg.ToolScores); err != nil {
			msg.ToolScores = nil
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, m.CreatedAtStr); err == nil {
		msg.CreatedAt = ts
	}
	return msg
}

// AppendMessage durably writes one chat message. The caller owns cache
// invalidation afterwards.
func (s *Store) AppendMessage(ctx context.Context, message ChatMessage) error {
	var toolScores *string
	if len(message.ToolScores) > 0 {
		raw, err := json.Marshal(message.ToolScores)
		if err != nil {
			return errors.Wrap(err, "marshaling tool scores")
		}
		str := string(raw)
		toolScores = &str
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, role, content, mood, model, tool_scores, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		message.ID, message.UserID, message.Role, message.Content,
		message.Mood, message.Model, toolScores,
		message.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrap(err, "appending chat message")
}

// GetRecentMessages returns the user's most recent `limit` messages
// ordered oldest-to-newest.
func (s *Store) GetRecentMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, role, content, mood, model, tool_scores, created_at
		FROM chat_messages
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent messages")
	}

	messages := lo.Map(rows, func(row messageRow, _ int) ChatMessage {
		return row.toModel()
	})
	return lo.Reverse(messages), nil
}

// MessageCount returns the total number of messages stored for a user.
func (s *Store) MessageCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chat_messages WHERE user_id = ?`, userID)
	return count, errors.Wrap(err, "counting messages")
}

// ClearMessages deletes the user's entire chat history. Administrative
// operation, not part of the per-turn flow.
func (s *Store) ClearMessages(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "clearing messages")
	}
	return result.RowsAffected()
}
