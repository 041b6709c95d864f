package base

import (
	"context"
	"errors"
	"fmt"
	"html"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
)

// Handler carries the collaborators every command handler needs.
type Handler struct {
	service  bot.Service
	executor moderation.Executor
	logger   *log.Entry
}

func NewHandler(service bot.Service, executor moderation.Executor, handlerName string) *Handler {
	return &Handler{
		service:  service,
		executor: executor,
		logger:   log.WithField("handler", handlerName),
	}
}

func (h *Handler) Service() bot.Service {
	return h.service
}

func (h *Handler) Logger() *log.Entry {
	return h.logger
}

// ValidateUpdate performs common update validation
func (h *Handler) ValidateUpdate(u *api.Update, chat *api.Chat, user *api.User) error {
	if u == nil {
		return ErrNilUpdate
	}
	if chat == nil || user == nil {
		return ErrNilChatOrUser
	}
	return nil
}

// ExecuteDirectives runs the engine's directives in order, stopping at the
// first failure. Order matters: a kick is a ban that must land before the
// unban.
func (h *Handler) ExecuteDirectives(ctx context.Context, directives []moderation.Directive) error {
	for _, d := range directives {
		if err := h.executor.Execute(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// ReplyHTML sends an HTML-formatted reply into the chat.
func (h *Handler) ReplyHTML(chatID int64, replyTo int, text string) {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = api.ModeHTML
	if replyTo != 0 {
		msg.ReplyParameters = api.ReplyParameters{MessageID: replyTo}
	}
	if _, err := h.service.GetBot().Send(msg); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("cant send reply")
	}
}

// DenyMessage maps a denial reason to the user-facing text.
func DenyMessage(reason moderation.DenyReason) string {
	switch reason {
	case moderation.DenyProtectedTarget:
		return "I can't do that: the target is an admin or otherwise protected."
	case moderation.DenyAlreadyInState:
		return "Nothing to do, the user is already in that state."
	case moderation.DenyTargetNotFound:
		return "Could not find that user."
	case moderation.DenyGroupOnly:
		return "This command only works in groups."
	default:
		return "You need to be an admin to use this command."
	}
}

// Mention renders a clickable HTML mention for a user.
func Mention(user *api.User) string {
	if user == nil {
		return ""
	}
	name := user.FirstName
	if name == "" {
		name = user.UserName
	}
	if name == "" {
		name = fmt.Sprintf("%d", user.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, html.EscapeString(name))
}

// MentionID renders a mention for a bare user id, no display name known.
func MentionID(userID int64) string {
	return fmt.Sprintf("<code>%d</code>", userID)
}

var (
	ErrNilUpdate     = errors.New("nil update")
	ErrNilChatOrUser = errors.New("nil chat or user")
)
