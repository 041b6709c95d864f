package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
	"github.com/paradox-zenu/Aoi-SakamotoBot/resources"
)

type sqliteClient struct {
	db    *sqlx.DB
	mutex sync.RWMutex
}

func NewSQLiteClient(ctx context.Context, dir, name string) (*sqliteClient, error) {
	dbx, err := sqlx.Open("sqlite", filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY churn under concurrent warn transactions.
	dbx.SetMaxOpenConns(1)

	if err := dbx.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	if n > 0 {
		log.Infof("applied %d migrations", n)
	}

	return &sqliteClient{db: dbx}, nil
}

func (s *sqliteClient) Close() error {
	return s.db.Close()
}

func (s *sqliteClient) UpsertUser(ctx context.Context, user *db.UserMeta) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if user.FirstSeen.IsZero() {
		user.FirstSeen = time.Now()
	}
	query := `
		INSERT INTO users (id, username, first_name, last_name, first_seen)
		VALUES (:id, :username, :first_name, :last_name, :first_seen)
		ON CONFLICT(id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name,
		last_name = excluded.last_name
	`
	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("upsert user %d: %w", user.ID, err)
	}
	return nil
}

func (s *sqliteClient) GetUser(ctx context.Context, userID int64) (*db.UserMeta, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user := &db.UserMeta{}
	err := s.db.GetContext(ctx, user, `SELECT id, username, first_name, last_name, first_seen FROM users WHERE id = ?`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return user, nil
}

func (s *sqliteClient) UpsertChat(ctx context.Context, chat *db.ChatMeta) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO chats (id, title, type, welcome_enabled, welcome_template, rules)
		VALUES (:id, :title, :type, :welcome_enabled, :welcome_template, :rules)
		ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		type = excluded.type
	`
	if _, err := s.db.NamedExecContext(ctx, query, chat); err != nil {
		return fmt.Errorf("upsert chat %d: %w", chat.ID, err)
	}
	return nil
}

func (s *sqliteClient) GetChat(ctx context.Context, chatID int64) (*db.ChatMeta, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	chat := &db.ChatMeta{}
	err := s.db.GetContext(ctx, chat, `SELECT id, title, type, welcome_enabled, welcome_template, rules FROM chats WHERE id = ?`, chatID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat %d: %w", chatID, err)
	}
	return chat, nil
}

func (s *sqliteClient) GetGroupChats(ctx context.Context) ([]db.ChatMeta, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var chats []db.ChatMeta
	err := s.db.SelectContext(ctx, &chats, `
		SELECT id, title, type, welcome_enabled, welcome_template, rules
		FROM chats
		WHERE type IN ('group', 'supergroup')
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("get group chats: %w", err)
	}
	return chats, nil
}

func (s *sqliteClient) SetWelcome(ctx context.Context, chatID int64, enabled bool, template string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE chats SET welcome_enabled = ?, welcome_template = ? WHERE id = ?`, enabled, template, chatID)
	if err != nil {
		return fmt.Errorf("set welcome for chat %d: %w", chatID, err)
	}
	return nil
}

func (s *sqliteClient) SetRules(ctx context.Context, chatID int64, rules string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE chats SET rules = ? WHERE id = ?`, rules, chatID)
	if err != nil {
		return fmt.Errorf("set rules for chat %d: %w", chatID, err)
	}
	return nil
}
