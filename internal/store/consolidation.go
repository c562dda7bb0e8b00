package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// StartConsolidationRun opens a new audit row and returns its id.
func (s *Store) StartConsolidationRun(ctx context.Context, id, chatID string, trigger TriggerType, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consolidation_runs (id, chat_id, trigger_type, items_processed, summaries_created, conflicts_detected, started_at, completed_at)
		VALUES (?, ?, ?, 0, 0, 0, ?, NULL)
	`, id, chatID, string(trigger), startedAt.UnixMilli())
	if err != nil {
		return m3aerrors.StorageFailure("startConsolidationRun", err)
	}
	return nil
}

// FinishConsolidationRun records the final counters and completion time.
func (s *Store) FinishConsolidationRun(ctx context.Context, id string, itemsProcessed, summariesCreated, conflictsDetected int, completedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE consolidation_runs
		SET items_processed = ?, summaries_created = ?, conflicts_detected = ?, completed_at = ?
		WHERE id = ?
	`, itemsProcessed, summariesCreated, conflictsDetected, completedAt.UnixMilli(), id)
	if err != nil {
		return m3aerrors.StorageFailure("finishConsolidationRun", err)
	}
	return nil
}

// ConsolidationHistory returns the most recent runs for chatID, newest
// first.
func (s *Store) ConsolidationHistory(ctx context.Context, chatID string, limit int) ([]ConsolidationRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, trigger_type, items_processed, summaries_created, conflicts_detected, started_at, completed_at
		FROM consolidation_runs
		WHERE chat_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, m3aerrors.StorageFailure("consolidationHistory", err)
	}
	defer rows.Close()

	var out []ConsolidationRun
	for rows.Next() {
		var r ConsolidationRun
		var trigger string
		var startedAt int64
		var completedAt sql.NullInt64
		if err := rows.Scan(&r.ID, &r.ChatID, &trigger, &r.ItemsProcessed, &r.SummariesCreated,
			&r.ConflictsDetected, &startedAt, &completedAt); err != nil {
			return nil, m3aerrors.StorageFailure("scanConsolidationRun", err)
		}
		r.TriggerType = TriggerType(trigger)
		r.StartedAt = time.UnixMilli(startedAt)
		if completedAt.Valid {
			t := time.UnixMilli(completedAt.Int64)
			r.CompletedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, m3aerrors.StorageFailure("consolidationHistory", err)
	}
	return out, nil
}
