package moderation

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
	apperrors "github.com/paradox-zenu/Aoi-SakamotoBot/internal/errors"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/observability"
)

// Store is the slice of the persistence contract the engine needs.
type Store interface {
	AddWarning(ctx context.Context, w *db.Warning, limit int) (int, bool, error)
	GetWarnings(ctx context.Context, chatID, userID int64) ([]db.Warning, error)
	ResetWarnings(ctx context.Context, chatID, userID int64) (int64, error)
	UpsertGlobalBan(ctx context.Context, ban *db.GlobalBan) (bool, error)
	GetGlobalBan(ctx context.Context, userID int64) (*db.GlobalBan, error)
	DeleteGlobalBan(ctx context.Context, userID int64) (bool, error)
	GetGlobalBans(ctx context.Context) ([]db.GlobalBan, error)
	GetGroupChats(ctx context.Context) ([]db.ChatMeta, error)
	GetSetting(ctx context.Context, chatID int64, key string) (string, error)
	GetFilters(ctx context.Context, chatID int64) ([]db.Filter, error)
}

// Options carries the identities and limits the engine enforces.
type Options struct {
	BotID             int64
	OwnerID           int64
	SudoUsers         []int64
	DefaultWarnLimit  int
	FanOutConcurrency int64
	FanOutChatTimeout time.Duration
}

// Engine translates moderation intents into state mutations and directives.
// It holds no state of its own beyond its collaborators; any number of
// instances may run against a shared store.
type Engine struct {
	store  Store
	roles  RoleSource
	exec   Executor
	opts   Options
	sudo   map[int64]struct{}
	logger *log.Entry
}

func NewEngine(store Store, roles RoleSource, exec Executor, opts Options) *Engine {
	if opts.DefaultWarnLimit < 1 {
		opts.DefaultWarnLimit = 3
	}
	if opts.FanOutConcurrency < 1 {
		opts.FanOutConcurrency = 8
	}
	if opts.FanOutChatTimeout <= 0 {
		opts.FanOutChatTimeout = 10 * time.Second
	}
	sudo := make(map[int64]struct{}, len(opts.SudoUsers))
	for _, id := range opts.SudoUsers {
		sudo[id] = struct{}{}
	}
	return &Engine{
		store:  store,
		roles:  roles,
		exec:   exec,
		opts:   opts,
		sudo:   sudo,
		logger: log.WithField("context", "moderation"),
	}
}

// checkProtected rejects targets the engine must never restrict: the bot
// itself and anyone currently holding an admin or owner role in the chat.
// The role is fetched live; a failed lookup fails closed.
func (e *Engine) checkProtected(ctx context.Context, chatID, targetID int64) error {
	if targetID == e.opts.BotID {
		return &Denied{Reason: DenyProtectedTarget}
	}
	role, err := e.roles.GetRole(ctx, chatID, targetID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &Denied{Reason: DenyTargetNotFound}
		}
		return errors.WithMessage(err, "live role lookup")
	}
	if role.IsPrivileged() {
		return &Denied{Reason: DenyProtectedTarget}
	}
	return nil
}

func (e *Engine) isGloballyProtected(targetID int64) bool {
	if targetID == e.opts.BotID || targetID == e.opts.OwnerID {
		return true
	}
	_, ok := e.sudo[targetID]
	return ok
}

// warnLimit resolves the per-chat threshold, falling back to the default.
func (e *Engine) warnLimit(ctx context.Context, chatID int64) int {
	raw, err := e.store.GetSetting(ctx, chatID, db.SettingWarnLimit)
	if err != nil {
		e.logger.WithError(err).WithField("chat_id", chatID).Warn("cant read warn limit, using default")
		return e.opts.DefaultWarnLimit
	}
	if raw == "" {
		return e.opts.DefaultWarnLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return e.opts.DefaultWarnLimit
	}
	return limit
}

// Warn appends a warning for the target and escalates to a ban directive
// when the count reaches the chat's threshold. The count check and the
// reset are atomic in the store, so the threshold ban fires exactly once.
func (e *Engine) Warn(ctx context.Context, chatID, targetID, issuerID int64, reason string) (*WarnResult, error) {
	if err := e.checkProtected(ctx, chatID, targetID); err != nil {
		return nil, err
	}

	limit := e.warnLimit(ctx, chatID)
	count, escalated, err := e.store.AddWarning(ctx, &db.Warning{
		ChatID:   chatID,
		UserID:   targetID,
		Reason:   reason,
		IssuedBy: issuerID,
	}, limit)
	if err != nil {
		return nil, errors.WithMessage(err, "add warning")
	}

	result := &WarnResult{Count: count, Threshold: limit, Escalated: escalated}
	if escalated {
		result.Directives = []Directive{{Action: ActionBan, ChatID: chatID, UserID: targetID}}
		observability.RecordWarnEscalation()
		e.logger.WithFields(log.Fields{
			"chat_id":   chatID,
			"target_id": targetID,
			"issuer_id": issuerID,
		}).Info("warning threshold reached, escalating to ban")
	}
	observability.RecordModerationAction("warn", "ok")
	return result, nil
}

// Unwarn hard-resets the warning sequence and reports how many entries were
// cleared; zero means there was nothing to clear and nothing was mutated.
func (e *Engine) Unwarn(ctx context.Context, chatID, targetID int64) (int64, error) {
	cleared, err := e.store.ResetWarnings(ctx, chatID, targetID)
	if err != nil {
		return 0, errors.WithMessage(err, "reset warnings")
	}
	observability.RecordModerationAction("unwarn", "ok")
	return cleared, nil
}

// Warnings lists the current sequence for status queries.
func (e *Engine) Warnings(ctx context.Context, chatID, targetID int64) ([]db.Warning, error) {
	warnings, err := e.store.GetWarnings(ctx, chatID, targetID)
	if err != nil {
		return nil, errors.WithMessage(err, "get warnings")
	}
	return warnings, nil
}

// Ban validates the target and returns the ban directive for the caller to
// execute. The engine never talks to the platform for single-chat actions.
func (e *Engine) Ban(ctx context.Context, chatID, targetID int64) ([]Directive, error) {
	if err := e.checkProtected(ctx, chatID, targetID); err != nil {
		return nil, err
	}
	observability.RecordModerationAction("ban", "ok")
	return []Directive{{Action: ActionBan, ChatID: chatID, UserID: targetID}}, nil
}

func (e *Engine) Unban(ctx context.Context, chatID, targetID int64) ([]Directive, error) {
	if err := e.checkProtected(ctx, chatID, targetID); err != nil {
		return nil, err
	}
	observability.RecordModerationAction("unban", "ok")
	return []Directive{{Action: ActionUnban, ChatID: chatID, UserID: targetID}}, nil
}

// Kick is a ban immediately followed by an unban in the same chat.
func (e *Engine) Kick(ctx context.Context, chatID, targetID int64) ([]Directive, error) {
	if err := e.checkProtected(ctx, chatID, targetID); err != nil {
		return nil, err
	}
	observability.RecordModerationAction("kick", "ok")
	return []Directive{
		{Action: ActionBan, ChatID: chatID, UserID: targetID},
		{Action: ActionUnban, ChatID: chatID, UserID: targetID},
	}, nil
}

// Mute restricts the target, optionally until now+duration. A zero duration
// mutes until an explicit Unmute.
func (e *Engine) Mute(ctx context.Context, chatID, targetID int64, duration time.Duration) ([]Directive, error) {
	if err := e.checkProtected(ctx, chatID, targetID); err != nil {
		return nil, err
	}
	d := Directive{Action: ActionMute, ChatID: chatID, UserID: targetID}
	if duration > 0 {
		d.Until = time.Now().Add(duration)
	}
	observability.RecordModerationAction("mute", "ok")
	return []Directive{d}, nil
}

func (e *Engine) Unmute(ctx context.Context, chatID, targetID int64) ([]Directive, error) {
	if err := e.checkProtected(ctx, chatID, targetID); err != nil {
		return nil, err
	}
	observability.RecordModerationAction("unmute", "ok")
	return []Directive{{Action: ActionUnmute, ChatID: chatID, UserID: targetID}}, nil
}
