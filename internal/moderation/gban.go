package moderation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/observability"
)

// GlobalBan records the ban and fans the per-chat ban out to every known
// group. The record is written before any platform call: the join and
// message backstops enforce it even in chats the fan-out could not reach.
//
// A repeat gban for an already-banned user only updates the stored reason
// and does not re-fan-out; the affected chats are assumed banned already
// and stragglers are reconciled by the backstops. The duplicate decision is
// the store's atomic created bool, not a prior read.
func (e *Engine) GlobalBan(ctx context.Context, actorID, targetID int64, reason string) (*GlobalBanResult, error) {
	if e.isGloballyProtected(targetID) {
		return nil, &Denied{Reason: DenyProtectedTarget}
	}

	// single atomic upsert: the store's created bool is the duplicate
	// decision, so two racing first bans cannot both fan out
	created, err := e.store.UpsertGlobalBan(ctx, &db.GlobalBan{
		UserID:   targetID,
		Reason:   reason,
		BannedBy: actorID,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "write gban")
	}
	if !created {
		return &GlobalBanResult{Accepted: true, Duplicate: true}, nil
	}

	chats, err := e.store.GetGroupChats(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "enumerate chats")
	}

	succeeded := e.fanOut(ctx, ActionBan, targetID, chats)
	observability.RecordModerationAction("gban", "ok")
	return &GlobalBanResult{
		Accepted:       true,
		ChatsAttempted: len(chats),
		ChatsSucceeded: succeeded,
	}, nil
}

// GlobalUnban deletes the record and attempts unbans across all known
// groups with the same partial-failure tolerance. Accepted is false when no
// record existed.
func (e *Engine) GlobalUnban(ctx context.Context, targetID int64) (*GlobalBanResult, error) {
	existed, err := e.store.DeleteGlobalBan(ctx, targetID)
	if err != nil {
		return nil, errors.WithMessage(err, "delete gban")
	}
	if !existed {
		return &GlobalBanResult{Accepted: false}, nil
	}

	chats, err := e.store.GetGroupChats(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "enumerate chats")
	}

	succeeded := e.fanOut(ctx, ActionUnban, targetID, chats)
	observability.RecordModerationAction("ungban", "ok")
	return &GlobalBanResult{
		Accepted:       true,
		ChatsAttempted: len(chats),
		ChatsSucceeded: succeeded,
	}, nil
}

// GlobalBans lists all active records for the gbanlist command.
func (e *Engine) GlobalBans(ctx context.Context) ([]db.GlobalBan, error) {
	bans, err := e.store.GetGlobalBans(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "get gbans")
	}
	return bans, nil
}

// fanOut issues one directive per chat with bounded concurrency and a
// per-chat timeout. Chats are independent: a failure or timeout in one is
// counted and the rest continue. On shutdown the remaining chats are
// abandoned and the partial tally is returned.
func (e *Engine) fanOut(ctx context.Context, action Action, userID int64, chats []db.ChatMeta) int {
	ctx, span := otel.Tracer("moderation").Start(ctx, "fan-out")
	defer span.End()

	opID := uuid.New()
	logger := e.logger.WithFields(log.Fields{
		"op_id":   opID,
		"action":  string(action),
		"user_id": userID,
		"chats":   len(chats),
	})
	logger.Info("starting fan-out")

	started := time.Now()
	var succeeded atomic.Int64
	sem := semaphore.NewWeighted(e.opts.FanOutConcurrency)
	g := new(errgroup.Group)

	for _, chat := range chats {
		if err := sem.Acquire(ctx, 1); err != nil {
			logger.WithError(err).Warn("fan-out abandoned, reporting partial tally")
			break
		}
		chatID := chat.ID
		g.Go(func() error {
			defer sem.Release(1)
			chatCtx, cancel := context.WithTimeout(ctx, e.opts.FanOutChatTimeout)
			defer cancel()

			err := e.exec.Execute(chatCtx, Directive{Action: action, ChatID: chatID, UserID: userID})
			if err != nil {
				observability.RecordFanOutChat("failed")
				logger.WithError(err).WithField("chat_id", chatID).Debug("fan-out chat failed")
				return nil
			}
			observability.RecordFanOutChat("ok")
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	observability.ObserveFanOutDuration(time.Since(started))
	logger.WithField("succeeded", succeeded.Load()).Info("fan-out finished")
	return int(succeeded.Load())
}

// CheckGlobalBanOnJoin returns a ban directive when the joining user holds
// an active global ban. This is how banned users are kept out of chats the
// original fan-out never reached.
func (e *Engine) CheckGlobalBanOnJoin(ctx context.Context, chatID, userID int64) (*Directive, error) {
	ban, err := e.store.GetGlobalBan(ctx, userID)
	if err != nil {
		return nil, errors.WithMessage(err, "gban lookup on join")
	}
	if ban == nil {
		return nil, nil
	}
	return &Directive{Action: ActionBan, ChatID: chatID, UserID: userID}, nil
}

// CheckGlobalBanOnMessage is the per-message backstop for join-time
// evasion: ban plus deletion of the triggering message.
func (e *Engine) CheckGlobalBanOnMessage(ctx context.Context, chatID, userID int64, messageID int) ([]Directive, error) {
	ban, err := e.store.GetGlobalBan(ctx, userID)
	if err != nil {
		return nil, errors.WithMessage(err, "gban lookup on message")
	}
	if ban == nil {
		return nil, nil
	}
	return []Directive{
		{Action: ActionBan, ChatID: chatID, UserID: userID},
		{Action: ActionDeleteMessage, ChatID: chatID, MessageID: messageID},
	}, nil
}
