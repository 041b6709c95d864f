package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
)

// Note and filter names are case-folded at write and read time. Only
// lowercasing, no other normalization, so lookups stay predictable.

func (s *sqliteClient) SaveNote(ctx context.Context, note *db.Note) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	note.Name = strings.ToLower(note.Name)
	note.UpdatedAt = time.Now()
	query := `
		INSERT INTO notes (chat_id, name, content, media_ref, created_by, updated_at)
		VALUES (:chat_id, :name, :content, :media_ref, :created_by, :updated_at)
		ON CONFLICT(chat_id, name) DO UPDATE SET
		content = excluded.content,
		media_ref = excluded.media_ref,
		created_by = excluded.created_by,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("save note %q: %w", note.Name, err)
	}
	return nil
}

func (s *sqliteClient) GetNote(ctx context.Context, chatID int64, name string) (*db.Note, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	note := &db.Note{}
	err := s.db.GetContext(ctx, note, `
		SELECT chat_id, name, content, media_ref, created_by, updated_at
		FROM notes WHERE chat_id = ? AND name = ?
	`, chatID, strings.ToLower(name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get note %q: %w", name, err)
	}
	return note, nil
}

func (s *sqliteClient) DeleteNote(ctx context.Context, chatID int64, name string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE chat_id = ? AND name = ?`, chatID, strings.ToLower(name))
	if err != nil {
		return false, fmt.Errorf("delete note %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *sqliteClient) GetNotes(ctx context.Context, chatID int64) ([]db.Note, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var notes []db.Note
	err := s.db.SelectContext(ctx, &notes, `
		SELECT chat_id, name, content, media_ref, created_by, updated_at
		FROM notes WHERE chat_id = ? ORDER BY name
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("get notes: %w", err)
	}
	return notes, nil
}

func (s *sqliteClient) SaveFilter(ctx context.Context, filter *db.Filter) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	filter.Name = strings.ToLower(filter.Name)
	filter.UpdatedAt = time.Now()
	query := `
		INSERT INTO filters (chat_id, name, content, media_ref, created_by, updated_at)
		VALUES (:chat_id, :name, :content, :media_ref, :created_by, :updated_at)
		ON CONFLICT(chat_id, name) DO UPDATE SET
		content = excluded.content,
		media_ref = excluded.media_ref,
		created_by = excluded.created_by,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, filter); err != nil {
		return fmt.Errorf("save filter %q: %w", filter.Name, err)
	}
	return nil
}

func (s *sqliteClient) DeleteFilter(ctx context.Context, chatID int64, name string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM filters WHERE chat_id = ? AND name = ?`, chatID, strings.ToLower(name))
	if err != nil {
		return false, fmt.Errorf("delete filter %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete filter rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetFilters returns filters in insertion order. The matcher's
// first-match-wins contract depends on this order.
func (s *sqliteClient) GetFilters(ctx context.Context, chatID int64) ([]db.Filter, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var filters []db.Filter
	err := s.db.SelectContext(ctx, &filters, `
		SELECT chat_id, name, content, media_ref, created_by, updated_at
		FROM filters WHERE chat_id = ? ORDER BY id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("get filters: %w", err)
	}
	return filters, nil
}
