package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
)

// UpsertGlobalBan writes the ban record, updating the reason when one
// already exists. Reports whether the record was newly created; callers use
// that to decide whether a fan-out is due.
func (s *sqliteClient) UpsertGlobalBan(ctx context.Context, ban *db.GlobalBan) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if ban.BannedAt.IsZero() {
		ban.BannedAt = time.Now()
	}

	var existing int
	if err := s.db.GetContext(ctx, &existing, `SELECT COUNT(*) FROM gbans WHERE user_id = ?`, ban.UserID); err != nil {
		return false, fmt.Errorf("check existing gban: %w", err)
	}

	query := `
		INSERT INTO gbans (user_id, reason, banned_by, banned_at)
		VALUES (:user_id, :reason, :banned_by, :banned_at)
		ON CONFLICT(user_id) DO UPDATE SET
		reason = excluded.reason,
		banned_by = excluded.banned_by
	`
	if _, err := s.db.NamedExecContext(ctx, query, ban); err != nil {
		return false, fmt.Errorf("upsert gban for user %d: %w", ban.UserID, err)
	}
	return existing == 0, nil
}

func (s *sqliteClient) GetGlobalBan(ctx context.Context, userID int64) (*db.GlobalBan, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ban := &db.GlobalBan{}
	err := s.db.GetContext(ctx, ban, `SELECT user_id, reason, banned_by, banned_at FROM gbans WHERE user_id = ?`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get gban for user %d: %w", userID, err)
	}
	return ban, nil
}

func (s *sqliteClient) DeleteGlobalBan(ctx context.Context, userID int64) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM gbans WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("delete gban for user %d: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete gban rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *sqliteClient) GetGlobalBans(ctx context.Context) ([]db.GlobalBan, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var bans []db.GlobalBan
	err := s.db.SelectContext(ctx, &bans, `SELECT user_id, reason, banned_by, banned_at FROM gbans ORDER BY banned_at`)
	if err != nil {
		return nil, fmt.Errorf("get gbans: %w", err)
	}
	return bans, nil
}
