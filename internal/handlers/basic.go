package handlers

import (
	"context"
	"fmt"
	"html"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/handlers/base"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/policy/permissions"
)

const helpText = `<b>Moderation</b>
/ban /unban /kick - remove members (reply or user id)
/mute [duration] /unmute - restrict members, e.g. /mute 2h
/warn /unwarn /warns - warnings; hitting the limit bans
/setwarnlimit [n] - per-chat warning threshold

<b>Global bans</b> (sudo only)
/gban /ungban /gbanlist

<b>Admin</b>
/promote /demote - manage admin roles
/pin /unpin /unpinall - manage pinned messages
/settitle /setdescription - chat metadata

<b>Chat</b>
/setwelcome /resetwelcome /welcome on|off
/save /get /clear /notes, or #name
/filter /stopfilter /filters
/rules /setrules
/id - show ids`

// Basic answers the informational commands that need no state machine.
type Basic struct {
	*base.Handler
	perms *permissions.Evaluator
}

func NewBasic(service bot.Service, perms *permissions.Evaluator, executor moderation.Executor) *Basic {
	return &Basic{
		Handler: base.NewHandler(service, executor, "basic"),
		perms:   perms,
	}
}

func (h *Basic) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	msg := u.Message
	if msg == nil || !msg.IsCommand() {
		return true, nil
	}

	switch msg.Command() {
	case "start":
		h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("Hi %s! I keep group chats tidy. Use /help to see what I can do.", base.Mention(user)))
	case "help":
		h.ReplyHTML(chat.ID, msg.MessageID, helpText)
	case "id":
		h.sendIDs(msg, chat, user)
	case "rules":
		h.rules(ctx, msg, chat)
	case "setrules":
		h.setRules(ctx, msg, chat, user)
	default:
		return true, nil
	}
	return false, nil
}

func (h *Basic) sendIDs(msg *api.Message, chat *api.Chat, user *api.User) {
	text := fmt.Sprintf("Chat id: <code>%d</code>\nYour id: <code>%d</code>", chat.ID, user.ID)
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		text += fmt.Sprintf("\n%s: <code>%d</code>", base.Mention(msg.ReplyToMessage.From), msg.ReplyToMessage.From.ID)
	}
	h.ReplyHTML(chat.ID, msg.MessageID, text)
}

func (h *Basic) rules(ctx context.Context, msg *api.Message, chat *api.Chat) {
	meta, err := h.Service().GetDB().GetChat(ctx, chat.ID)
	if err != nil {
		h.Logger().WithError(err).Error("cant load chat meta")
		return
	}
	if meta == nil || meta.Rules == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "No rules have been set for this chat.")
		return
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("<b>Rules for %s:</b>\n\n%s",
		html.EscapeString(chat.Title), html.EscapeString(meta.Rules)))
}

func (h *Basic) setRules(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) {
	decision := h.perms.Authorize(ctx, user.ID, permissions.ChatRef{ID: chat.ID, Private: isPrivate(chat)}, permissions.CapManageChat)
	if !decision.Allowed {
		h.ReplyHTML(chat.ID, msg.MessageID, base.DenyMessage(decision.Reason))
		return
	}
	rules := msg.CommandArguments()
	if rules == "" && msg.ReplyToMessage != nil {
		rules = msg.ReplyToMessage.Text
	}
	if rules == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /setrules [rules text], or reply to a message with /setrules.")
		return
	}
	if err := h.Service().GetDB().SetRules(ctx, chat.ID, rules); err != nil {
		h.Logger().WithError(err).Error("cant save rules")
		return
	}
	h.ReplyHTML(chat.ID, msg.MessageID, "✅ Rules updated for this chat.")
}
