package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/handlers/base"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/policy/permissions"
)

// Filters auto-replies to keyword matches in group messages.
type Filters struct {
	*base.Handler
	engine *moderation.Engine
	perms  *permissions.Evaluator
}

func NewFilters(service bot.Service, engine *moderation.Engine, perms *permissions.Evaluator, executor moderation.Executor) *Filters {
	return &Filters{
		Handler: base.NewHandler(service, executor, "filters"),
		engine:  engine,
		perms:   perms,
	}
}

func (h *Filters) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	msg := u.Message
	if msg == nil || isPrivate(chat) {
		return true, nil
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "filter":
			return false, h.add(ctx, msg, chat, user)
		case "stopfilter", "stop":
			return false, h.remove(ctx, msg, chat, user)
		case "filters":
			return false, h.list(ctx, msg, chat)
		}
		return true, nil
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return true, nil
	}

	matched, err := h.engine.MatchFilters(ctx, chat.ID, text)
	if err != nil {
		h.Logger().WithError(err).Error("cant match filters")
		return true, nil
	}
	if matched != nil {
		h.ReplyHTML(chat.ID, msg.MessageID, html.EscapeString(matched.Content))
		return false, nil
	}
	return true, nil
}

func (h *Filters) add(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user) {
		return nil
	}
	keyword, content := splitNoteArgs(msg.CommandArguments())
	if keyword == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /filter [keyword] [reply content], or reply to a message with /filter [keyword].")
		return nil
	}
	if content == "" && msg.ReplyToMessage != nil {
		content = msg.ReplyToMessage.Text
		if content == "" {
			content = msg.ReplyToMessage.Caption
		}
	}
	if content == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "There is no reply content for this filter.")
		return nil
	}

	filter := &db.Filter{
		ChatID:    chat.ID,
		Name:      strings.ToLower(keyword),
		Content:   content,
		CreatedBy: user.ID,
	}
	if err := h.Service().GetDB().SaveFilter(ctx, filter); err != nil {
		h.Logger().WithError(err).Error("cant save filter")
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("Filter <code>%s</code> saved.", html.EscapeString(filter.Name)))
	return nil
}

func (h *Filters) remove(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user) {
		return nil
	}
	keyword := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	if keyword == "" {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /stopfilter [keyword]")
		return nil
	}
	existed, err := h.Service().GetDB().DeleteFilter(ctx, chat.ID, keyword)
	if err != nil {
		h.Logger().WithError(err).Error("cant delete filter")
		return nil
	}
	if !existed {
		h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("No filter <code>%s</code> here.", html.EscapeString(keyword)))
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("Filter <code>%s</code> stopped.", html.EscapeString(keyword)))
	return nil
}

func (h *Filters) list(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	filters, err := h.Service().GetDB().GetFilters(ctx, chat.ID)
	if err != nil {
		h.Logger().WithError(err).Error("cant list filters")
		return nil
	}
	if len(filters) == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "There are no active filters in this chat.")
		return nil
	}
	var b strings.Builder
	b.WriteString("<b>Active filters:</b>\n")
	for _, filter := range filters {
		fmt.Fprintf(&b, " • <code>%s</code>\n", html.EscapeString(filter.Name))
	}
	h.ReplyHTML(chat.ID, msg.MessageID, b.String())
	return nil
}

func (h *Filters) authorize(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) bool {
	decision := h.perms.Authorize(ctx, user.ID, permissions.ChatRef{ID: chat.ID, Private: isPrivate(chat)}, permissions.CapManageFilters)
	if !decision.Allowed {
		h.ReplyHTML(chat.ID, msg.MessageID, base.DenyMessage(decision.Reason))
		return false
	}
	return true
}
