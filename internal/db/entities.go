package db

import (
	"time"
)

type (
	// UserMeta mirrors the last observed identity of a user. Created on the
	// first interaction the bot sees; refreshed, never deleted.
	UserMeta struct {
		ID        int64     `db:"id"`
		UserName  string    `db:"username"`
		FirstName string    `db:"first_name"`
		LastName  string    `db:"last_name"`
		FirstSeen time.Time `db:"first_seen"`
	}

	// ChatMeta tracks a chat the bot has observed. Rows are never deleted,
	// even when the bot is removed from the chat; the global-ban fan-out
	// tolerates chats it can no longer reach.
	ChatMeta struct {
		ID              int64  `db:"id"`
		Title           string `db:"title"`
		Type            string `db:"type"`
		WelcomeEnabled  bool   `db:"welcome_enabled"`
		WelcomeTemplate string `db:"welcome_template"`
		Rules           string `db:"rules"`
	}

	// Warning is one entry of the append-only per-(chat,user) sequence.
	Warning struct {
		ID        int64     `db:"id"`
		ChatID    int64     `db:"chat_id"`
		UserID    int64     `db:"user_id"`
		Reason    string    `db:"reason"`
		IssuedBy  int64     `db:"issued_by"`
		CreatedAt time.Time `db:"created_at"`
	}

	// GlobalBan is the authoritative record for "user is globally banned".
	// At most one row per user; repeat bans upsert the reason.
	GlobalBan struct {
		UserID   int64     `db:"user_id"`
		Reason   string    `db:"reason"`
		BannedBy int64     `db:"banned_by"`
		BannedAt time.Time `db:"banned_at"`
	}

	// Note is a saved reply keyed by lowercased name within a chat.
	Note struct {
		ChatID    int64     `db:"chat_id"`
		Name      string    `db:"name"`
		Content   string    `db:"content"`
		MediaRef  string    `db:"media_ref"`
		CreatedBy int64     `db:"created_by"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	// Filter is a keyword-triggered auto-reply, same keying as Note.
	Filter struct {
		ChatID    int64     `db:"chat_id"`
		Name      string    `db:"name"`
		Content   string    `db:"content"`
		MediaRef  string    `db:"media_ref"`
		CreatedBy int64     `db:"created_by"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)

// Per-chat setting keys stored in the settings table.
const (
	SettingWarnLimit = "warn_limit"
)

const DefaultWelcomeTemplate = "Welcome to {chat_title}, {user_mention}!"
