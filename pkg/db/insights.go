package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/serenique/serenique-server/pkg/insight"
)

type insightRow struct {
	ID              string `db:"id"`
	UserID          string `db:"user_id"`
	Type            string `db:"type"`
	Content         string `db:"content"`
	OriginalMessage string `db:"original_message"`
	CreatedAtStr    string `db:"created_at"`
}

func (r *insightRow) toModel() insight.Insight {
	ins := insight.Insight{
		ID:              r.ID,
		Type:            insight.Type(r.Type),
		Content:         r.Content,
		OriginalMessage: r.OriginalMessage,
	}
	if ts, err := time.Parse(time.RFC3339Nano, r.CreatedAtStr); err == nil {
		ins.Timestamp = ts
	}
	return ins
}

// AppendInsight persists one accepted insight for a user.
func (s *Store) AppendInsight(ctx context.Context, userID string, ins insight.Insight) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insights (id, user_id, type, content, original_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ins.ID, userID, string(ins.Type), ins.Content, ins.OriginalMessage,
		ins.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrap(err, "appending insight")
}

// GetRecentInsights returns up to `limit` insights, most recent first.
func (s *Store) GetRecentInsights(ctx context.Context, userID string, limit int) ([]insight.Insight, error) {
	var rows []insightRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, type, content, original_message, created_at
		FROM insights
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent insights")
	}

	return lo.Map(rows, func(row insightRow, _ int) insight.Insight {
		return row.toModel()
	}), nil
}

// DeleteInsight removes a single insight by id. Returns ErrNotFound if
// the insight does not exist for that user.
func (s *Store) DeleteInsight(ctx context.Context, userID, insightID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM insights WHERE user_id = ? AND id = ?`, userID, insightID)
	if err != nil {
		return errors.Wrap(err, "deleting insight")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsightStats returns per-type insight counts for a user. Types with
// no insights are present with a zero count.
func (s *Store) InsightStats(ctx context.Context, userID string) (map[insight.Type]int, error) {
	var rows []struct {
		Type  string `db:"type"`
		Count int    `db:"count"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT type, COUNT(*) AS count
		FROM insights
		WHERE user_id = ?
		GROUP BY type`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying insight stats")
	}

	stats := make(map[insight.Type]int, len(insight.Types))
	for _, t := range insight.Types {
		stats[t] = 0
	}
	for _, row := range rows {
		stats[insight.Type(row.Type)] = row.Count
	}
	return stats, nil
}
