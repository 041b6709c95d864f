package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/handlers/base"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/policy/permissions"
)

// Admin covers the chat-administration commands: role changes, pins and
// chat metadata. Like the restriction commands, every branch authorizes
// the actor first and then executes whatever directives the engine hands
// back.
type Admin struct {
	*base.Handler
	engine *moderation.Engine
	perms  *permissions.Evaluator
}

func NewAdmin(service bot.Service, engine *moderation.Engine, perms *permissions.Evaluator, executor moderation.Executor) *Admin {
	return &Admin{
		Handler: base.NewHandler(service, executor, "admin"),
		engine:  engine,
		perms:   perms,
	}
}

func (h *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	msg := u.Message
	if msg == nil || !msg.IsCommand() {
		return true, nil
	}

	switch msg.Command() {
	case "promote":
		return false, h.promote(ctx, msg, chat, user)
	case "demote":
		return false, h.demote(ctx, msg, chat, user)
	case "pin":
		return false, h.pin(ctx, msg, chat, user)
	case "unpin":
		return false, h.unpin(ctx, msg, chat, user)
	case "unpinall":
		return false, h.unpinAll(ctx, msg, chat, user)
	case "settitle":
		return false, h.setTitle(ctx, msg, chat, user)
	case "setdescription":
		return false, h.setDescription(ctx, msg, chat, user)
	}
	return true, nil
}

func (h *Admin) authorize(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User, cap permissions.Capability) bool {
	decision := h.perms.Authorize(ctx, user.ID, permissions.ChatRef{ID: chat.ID, Private: isPrivate(chat)}, cap)
	if !decision.Allowed {
		h.ReplyHTML(chat.ID, msg.MessageID, base.DenyMessage(decision.Reason))
		return false
	}
	return true
}

func (h *Admin) promote(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapPromote) {
		return nil
	}
	targetID, _ := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "You need to specify a user to promote: reply to their message or pass an id.")
		return nil
	}

	directives, err := h.engine.Promote(ctx, chat.ID, targetID)
	if err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "promote", err)
		return nil
	}
	if err := h.ExecuteDirectives(ctx, directives); err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "promote", err)
		return nil
	}

	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("⭐ <b>Promoted:</b> %s\n👮 <b>By:</b> %s", base.MentionID(targetID), base.Mention(user)))
	h.Logger().WithFields(log.Fields{
		"chat_id":   chat.ID,
		"target_id": targetID,
		"actor_id":  user.ID,
	}).Info("user promoted")
	return nil
}

func (h *Admin) demote(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapPromote) {
		return nil
	}
	targetID, _ := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "You need to specify a user to demote: reply to their message or pass an id.")
		return nil
	}

	directives, err := h.engine.Demote(ctx, chat.ID, targetID)
	if err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "demote", err)
		return nil
	}
	if err := h.ExecuteDirectives(ctx, directives); err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "demote", err)
		return nil
	}

	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("⬇️ <b>Demoted:</b> %s\n👮 <b>By:</b> %s", base.MentionID(targetID), base.Mention(user)))
	h.Logger().WithFields(log.Fields{
		"chat_id":   chat.ID,
		"target_id": targetID,
		"actor_id":  user.ID,
	}).Info("user demoted")
	return nil
}

func (h *Admin) pin(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapPin) {
		return nil
	}
	if msg.ReplyToMessage == nil {
		h.ReplyHTML(chat.ID, msg.MessageID, "Reply to the message you want to pin.")
		return nil
	}
	if err := h.ExecuteDirectives(ctx, h.engine.Pin(chat.ID, msg.ReplyToMessage.MessageID)); err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "pin", err)
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, "📌 Pinned.")
	return nil
}

func (h *Admin) unpin(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapPin) {
		return nil
	}
	// without a reply the most recent pin is removed
	messageID := 0
	if msg.ReplyToMessage != nil {
		messageID = msg.ReplyToMessage.MessageID
	}
	if err := h.ExecuteDirectives(ctx, h.engine.Unpin(chat.ID, messageID)); err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "unpin", err)
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, "Unpinned.")
	return nil
}

func (h *Admin) unpinAll(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapPin) {
		return nil
	}
	if err := h.ExecuteDirectives(ctx, h.engine.UnpinAll(chat.ID)); err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "unpinall", err)
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, "All pinned messages cleared.")
	return nil
}

func (h *Admin) setTitle(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapManageChat) {
		return nil
	}
	title := strings.TrimSpace(msg.CommandArguments())
	if title == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /settitle [new chat title]")
		return nil
	}
	if err := h.ExecuteDirectives(ctx, h.engine.SetTitle(chat.ID, title)); err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "settitle", err)
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("Chat title set to <b>%s</b>.", html.EscapeString(title)))
	return nil
}

func (h *Admin) setDescription(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapManageChat) {
		return nil
	}
	description := strings.TrimSpace(msg.CommandArguments())
	if description == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /setdescription [new chat description]")
		return nil
	}
	if err := h.ExecuteDirectives(ctx, h.engine.SetDescription(chat.ID, description)); err != nil {
		h.reportAdminError(chat.ID, msg.MessageID, "setdescription", err)
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, "Chat description updated.")
	return nil
}

func (h *Admin) reportAdminError(chatID int64, replyTo int, verb string, err error) {
	if denied, ok := moderation.AsDenied(err); ok {
		h.ReplyHTML(chatID, replyTo, base.DenyMessage(denied.Reason))
		return
	}
	h.Logger().WithError(err).WithField("command", verb).Error("admin operation failed")
	h.ReplyHTML(chatID, replyTo, fmt.Sprintf("Could not %s, something went wrong.", verb))
}
