package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
)

// AddWarning appends a warning and checks the threshold inside a single
// write transaction. When the count including the new warning reaches
// limit, the whole sequence is deleted before commit, so concurrent warns
// for the same (chat, user) pair can never both escalate or lose an append.
func (s *sqliteClient) AddWarning(ctx context.Context, w *db.Warning, limit int) (int, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if limit < 1 {
		return 0, false, fmt.Errorf("warning limit must be positive, got %d", limit)
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin warning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO warnings (chat_id, user_id, reason, issued_by, created_at)
		VALUES (:chat_id, :user_id, :reason, :issued_by, :created_at)
	`, w); err != nil {
		return 0, false, fmt.Errorf("insert warning: %w", err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM warnings WHERE chat_id = ? AND user_id = ?`, w.ChatID, w.UserID); err != nil {
		return 0, false, fmt.Errorf("count warnings: %w", err)
	}

	escalated := count >= limit
	if escalated {
		if _, err := tx.ExecContext(ctx, `DELETE FROM warnings WHERE chat_id = ? AND user_id = ?`, w.ChatID, w.UserID); err != nil {
			return 0, false, fmt.Errorf("reset warnings on escalation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit warning tx: %w", err)
	}
	return count, escalated, nil
}

func (s *sqliteClient) GetWarnings(ctx context.Context, chatID, userID int64) ([]db.Warning, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var warnings []db.Warning
	err := s.db.SelectContext(ctx, &warnings, `
		SELECT id, chat_id, user_id, reason, issued_by, created_at
		FROM warnings
		WHERE chat_id = ? AND user_id = ?
		ORDER BY id
	`, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("get warnings: %w", err)
	}
	return warnings, nil
}

func (s *sqliteClient) ResetWarnings(ctx context.Context, chatID, userID int64) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM warnings WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("reset warnings: %w", err)
	}
	cleared, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset warnings rows affected: %w", err)
	}
	return cleared, nil
}
