package db

import (
	"context"
)

// Client is the persistence contract. The sqlite implementation is the only
// one shipped; tests substitute fakes per consumer.
type Client interface {
	Close() error

	UpsertUser(ctx context.Context, user *UserMeta) error
	GetUser(ctx context.Context, userID int64) (*UserMeta, error)

	UpsertChat(ctx context.Context, chat *ChatMeta) error
	GetChat(ctx context.Context, chatID int64) (*ChatMeta, error)
	GetGroupChats(ctx context.Context) ([]ChatMeta, error)
	SetWelcome(ctx context.Context, chatID int64, enabled bool, template string) error
	SetRules(ctx context.Context, chatID int64, rules string) error

	// AddWarning appends a warning and, when the new count reaches limit,
	// clears the sequence, all inside one write transaction, so two
	// concurrent warns for the same pair cannot both observe a
	// pre-threshold count. Returns the count including the new warning and
	// whether the threshold was reached.
	AddWarning(ctx context.Context, w *Warning, limit int) (count int, escalated bool, err error)
	GetWarnings(ctx context.Context, chatID, userID int64) ([]Warning, error)
	ResetWarnings(ctx context.Context, chatID, userID int64) (cleared int64, err error)

	UpsertGlobalBan(ctx context.Context, ban *GlobalBan) (created bool, err error)
	GetGlobalBan(ctx context.Context, userID int64) (*GlobalBan, error)
	DeleteGlobalBan(ctx context.Context, userID int64) (existed bool, err error)
	GetGlobalBans(ctx context.Context) ([]GlobalBan, error)

	SaveNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, chatID int64, name string) (*Note, error)
	DeleteNote(ctx context.Context, chatID int64, name string) (existed bool, err error)
	GetNotes(ctx context.Context, chatID int64) ([]Note, error)

	SaveFilter(ctx context.Context, filter *Filter) error
	DeleteFilter(ctx context.Context, chatID int64, name string) (existed bool, err error)
	// GetFilters returns the chat's filters in insertion order. Filter
	// matching relies on this order being stable across reads.
	GetFilters(ctx context.Context, chatID int64) ([]Filter, error)

	GetSetting(ctx context.Context, chatID int64, key string) (string, error)
	SetSetting(ctx context.Context, chatID int64, key, value string) error
}
