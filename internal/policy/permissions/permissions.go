package permissions

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
)

// Capability names an action a handler wants to gate.
type Capability string

const (
	CapBan           Capability = "ban"
	CapMute          Capability = "mute"
	CapWarn          Capability = "warn"
	CapManageNotes   Capability = "manage_notes"
	CapManageFilters Capability = "manage_filters"
	CapManageChat    Capability = "manage_chat"
	CapPromote       Capability = "promote"
	CapPin           Capability = "pin"
	CapInfo          Capability = "info"
	CapGlobalBan     Capability = "global_ban"
	CapBroadcast     Capability = "broadcast"
)

// privileged capabilities are granted to sudo users everywhere; the rest
// are chat-local and need an admin role in the specific chat.
func (c Capability) privileged() bool {
	return c == CapGlobalBan || c == CapBroadcast
}

// groupOnly capabilities are meaningless in a one-to-one conversation.
func (c Capability) groupOnly() bool {
	switch c {
	case CapBan, CapMute, CapWarn, CapManageNotes, CapManageFilters, CapManageChat, CapPromote, CapPin:
		return true
	}
	return false
}

// ChatRef is the minimal chat context a decision needs.
type ChatRef struct {
	ID      int64
	Private bool
}

type Decision struct {
	Allowed bool
	Reason  moderation.DenyReason
}

var allowed = Decision{Allowed: true}

func deny(reason moderation.DenyReason) Decision {
	return Decision{Reason: reason}
}

// Identity answers the static privilege questions the evaluator asks about
// an actor; config.Config satisfies it.
type Identity interface {
	IsOwner(userID int64) bool
	IsSudo(userID int64) bool
}

// Evaluator decides whether an actor may perform an action in a chat. It is
// pure: callers emit the denial message themselves.
type Evaluator struct {
	ident  Identity
	roles  moderation.RoleSource
	logger *log.Entry
}

func NewEvaluator(ident Identity, roles moderation.RoleSource) *Evaluator {
	return &Evaluator{
		ident:  ident,
		roles:  roles,
		logger: log.WithField("context", "permissions"),
	}
}

// Authorize evaluates the rule ladder in order, first match wins:
// owner, sudo, private-chat rules, then a live admin-role lookup. A failed
// lookup denies; this check never fails open.
func (e *Evaluator) Authorize(ctx context.Context, actorID int64, chat ChatRef, cap Capability) Decision {
	if e.ident.IsOwner(actorID) {
		return allowed
	}

	if e.ident.IsSudo(actorID) && cap.privileged() {
		return allowed
	}

	if chat.Private {
		if cap.groupOnly() {
			return deny(moderation.DenyGroupOnly)
		}
		return allowed
	}

	if cap.privileged() {
		// non-sudo actors never get privileged capabilities, admin or not
		return deny(moderation.DenyNotAdmin)
	}

	role, err := e.roles.GetRole(ctx, chat.ID, actorID)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"chat_id":  chat.ID,
			"actor_id": actorID,
		}).Warn("role lookup failed, denying")
		return deny(moderation.DenyNotAdmin)
	}
	if role.IsPrivileged() {
		return allowed
	}
	return deny(moderation.DenyNotAdmin)
}
