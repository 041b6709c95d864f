package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *sqliteClient) GetSetting(ctx context.Context, chatID int64, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE chat_id = ? AND key = ?`, chatID, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get setting %s for chat %d: %w", key, chatID, err)
	}
	return value, nil
}

func (s *sqliteClient) SetSetting(ctx context.Context, chatID int64, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO settings (chat_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id, key) DO UPDATE SET
		value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, chatID, key, value); err != nil {
		return fmt.Errorf("set setting %s for chat %d: %w", key, chatID, err)
	}
	return nil
}
