package moderation

import (
	"context"

	"github.com/pkg/errors"

	apperrors "github.com/paradox-zenu/Aoi-SakamotoBot/internal/errors"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/observability"
)

// Promote grants the target an admin role. Promoting the bot itself is
// refused, and promoting someone already privileged is a no-op rejection
// rather than a silent success.
func (e *Engine) Promote(ctx context.Context, chatID, targetID int64) ([]Directive, error) {
	if targetID == e.opts.BotID {
		return nil, &Denied{Reason: DenyProtectedTarget}
	}
	role, err := e.roles.GetRole(ctx, chatID, targetID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &Denied{Reason: DenyTargetNotFound}
		}
		return nil, errors.WithMessage(err, "live role lookup")
	}
	if role.IsPrivileged() {
		return nil, &Denied{Reason: DenyAlreadyInState}
	}
	observability.RecordModerationAction("promote", "ok")
	return []Directive{{Action: ActionPromote, ChatID: chatID, UserID: targetID}}, nil
}

// Demote strips the target's admin role. The chat owner cannot be demoted
// and demoting a plain member is rejected as already in state.
func (e *Engine) Demote(ctx context.Context, chatID, targetID int64) ([]Directive, error) {
	if targetID == e.opts.BotID {
		return nil, &Denied{Reason: DenyProtectedTarget}
	}
	role, err := e.roles.GetRole(ctx, chatID, targetID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &Denied{Reason: DenyTargetNotFound}
		}
		return nil, errors.WithMessage(err, "live role lookup")
	}
	if role == RoleOwner {
		return nil, &Denied{Reason: DenyProtectedTarget}
	}
	if !role.IsPrivileged() {
		return nil, &Denied{Reason: DenyAlreadyInState}
	}
	observability.RecordModerationAction("demote", "ok")
	return []Directive{{Action: ActionDemote, ChatID: chatID, UserID: targetID}}, nil
}

// Pin pins the referenced message without a notification blast.
func (e *Engine) Pin(chatID int64, messageID int) []Directive {
	observability.RecordModerationAction("pin", "ok")
	return []Directive{{Action: ActionPin, ChatID: chatID, MessageID: messageID}}
}

// Unpin removes one pin. A zero messageID unpins the most recent pin.
func (e *Engine) Unpin(chatID int64, messageID int) []Directive {
	observability.RecordModerationAction("unpin", "ok")
	return []Directive{{Action: ActionUnpin, ChatID: chatID, MessageID: messageID}}
}

// UnpinAll clears every pinned message in the chat.
func (e *Engine) UnpinAll(chatID int64) []Directive {
	observability.RecordModerationAction("unpin_all", "ok")
	return []Directive{{Action: ActionUnpinAll, ChatID: chatID}}
}

// SetTitle renames the chat.
func (e *Engine) SetTitle(chatID int64, title string) []Directive {
	observability.RecordModerationAction("set_title", "ok")
	return []Directive{{Action: ActionSetTitle, ChatID: chatID, Text: title}}
}

// SetDescription replaces the chat description.
func (e *Engine) SetDescription(chatID int64, description string) []Directive {
	observability.RecordModerationAction("set_description", "ok")
	return []Directive{{Action: ActionSetDescription, ChatID: chatID, Text: description}}
}
