package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Action names a platform-facing operation described by a Directive.
type Action string

const (
	ActionBan            Action = "ban"
	ActionUnban          Action = "unban"
	ActionMute           Action = "mute"
	ActionUnmute         Action = "unmute"
	ActionDeleteMessage  Action = "delete_message"
	ActionPromote        Action = "promote"
	ActionDemote         Action = "demote"
	ActionPin            Action = "pin"
	ActionUnpin          Action = "unpin"
	ActionUnpinAll       Action = "unpin_all"
	ActionSetTitle       Action = "set_title"
	ActionSetDescription Action = "set_description"
)

// Directive describes a platform call for a collaborator to execute. The
// engine decides; the executor talks to Telegram.
type Directive struct {
	Action    Action
	ChatID    int64
	UserID    int64
	MessageID int
	// Until bounds a mute; zero means indefinite.
	Until time.Time
	// Text carries the payload of set_title and set_description.
	Text string
}

// Role is a user's standing in a chat as reported live by the platform.
type Role string

const (
	RoleNone   Role = "none"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// IsPrivileged reports whether the role can moderate the chat.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleOwner
}

// RoleSource answers live role lookups. Results are never cached; staleness
// here would weaken the protectability check.
type RoleSource interface {
	GetRole(ctx context.Context, chatID, userID int64) (Role, error)
}

// Executor carries out a directive against the platform. Implementations
// must distinguish not-found, missing-privilege and transient errors.
type Executor interface {
	Execute(ctx context.Context, d Directive) error
}

type DenyReason string

const (
	DenyNotAdmin        DenyReason = "not_admin"
	DenyProtectedTarget DenyReason = "protected_target"
	DenyAlreadyInState  DenyReason = "already_in_state"
	DenyTargetNotFound  DenyReason = "target_not_found"
	DenyGroupOnly       DenyReason = "group_only"
)

// Denied is the terminal refusal of a single operation. It is an ordinary
// error value so it crosses the engine boundary without special plumbing;
// handlers unwrap it with AsDenied to pick a user-facing message.
type Denied struct {
	Reason DenyReason
}

func (d *Denied) Error() string {
	return fmt.Sprintf("denied: %s", d.Reason)
}

// AsDenied extracts a Denied from err, if there is one in its chain.
func AsDenied(err error) (*Denied, bool) {
	var denied *Denied
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}

// WarnResult reports the outcome of a Warn call. Count is the count
// including the new warning, before any escalation reset.
type WarnResult struct {
	Count      int
	Threshold  int
	Escalated  bool
	Directives []Directive
}

// GlobalBanResult tallies a global ban or unban fan-out. A duplicate gban
// is Accepted with Duplicate set and zero chats attempted.
type GlobalBanResult struct {
	Accepted       bool
	Duplicate      bool
	ChatsAttempted int
	ChatsSucceeded int
}
