package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/handlers/base"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/policy/permissions"
)

// Welcome greets new members and is the join-time enforcement point for
// global bans: a gbanned joiner is banned and their join message removed
// before any greeting.
type Welcome struct {
	*base.Handler
	engine *moderation.Engine
	perms  *permissions.Evaluator
}

func NewWelcome(service bot.Service, engine *moderation.Engine, perms *permissions.Evaluator, executor moderation.Executor) *Welcome {
	return &Welcome{
		Handler: base.NewHandler(service, executor, "welcome"),
		engine:  engine,
		perms:   perms,
	}
}

func (h *Welcome) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	msg := u.Message
	if msg == nil {
		return true, nil
	}

	if len(msg.NewChatMembers) > 0 {
		h.handleJoins(ctx, msg, chat)
		return false, nil
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "setwelcome":
			return false, h.setWelcome(ctx, msg, chat, user)
		case "resetwelcome":
			return false, h.resetWelcome(ctx, msg, chat, user)
		case "welcome":
			return false, h.toggleWelcome(ctx, msg, chat, user)
		}
	}
	return true, nil
}

func (h *Welcome) handleJoins(ctx context.Context, msg *api.Message, chat *api.Chat) {
	meta, err := h.Service().GetDB().GetChat(ctx, chat.ID)
	if err != nil {
		h.Logger().WithError(err).Warn("cant load chat meta on join")
	}

	for i := range msg.NewChatMembers {
		member := msg.NewChatMembers[i]

		directive, err := h.engine.CheckGlobalBanOnJoin(ctx, chat.ID, member.ID)
		if err != nil {
			h.Logger().WithError(err).WithField("user_id", member.ID).Error("gban join check failed")
		}
		if directive != nil {
			h.enforceJoinBan(ctx, msg, chat, &member, *directive)
			continue
		}

		if meta == nil || !meta.WelcomeEnabled {
			continue
		}
		template := meta.WelcomeTemplate
		if template == "" {
			template = db.DefaultWelcomeTemplate
		}
		h.ReplyHTML(chat.ID, msg.MessageID, renderWelcome(template, chat, &member))
	}
}

func (h *Welcome) enforceJoinBan(ctx context.Context, msg *api.Message, chat *api.Chat, member *api.User, directive moderation.Directive) {
	logger := h.Logger().WithFields(log.Fields{
		"chat_id": chat.ID,
		"user_id": member.ID,
	})
	if err := h.ExecuteDirectives(ctx, []moderation.Directive{
		directive,
		{Action: moderation.ActionDeleteMessage, ChatID: chat.ID, MessageID: msg.MessageID},
	}); err != nil {
		logger.WithError(err).Warn("cant enforce gban on join")
		return
	}
	logger.Info("globally banned user removed on join")
}

func (h *Welcome) setWelcome(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user) {
		return nil
	}
	template := strings.TrimSpace(msg.CommandArguments())
	if template == "" {
		meta, err := h.Service().GetDB().GetChat(ctx, chat.ID)
		if err != nil {
			h.Logger().WithError(err).Error("cant load chat meta")
			return nil
		}
		current := db.DefaultWelcomeTemplate
		if meta != nil && meta.WelcomeTemplate != "" {
			current = meta.WelcomeTemplate
		}
		h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf(
			"<b>Current welcome message:</b>\n\n%s\n\n<i>Use /setwelcome [message] to change it.</i>\n\nPlaceholders: {user_mention} {user_firstname} {user_id} {chat_title}",
			html.EscapeString(current)))
		return nil
	}

	if err := h.Service().GetDB().SetWelcome(ctx, chat.ID, true, template); err != nil {
		h.Logger().WithError(err).Error("cant save welcome template")
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, "✅ Welcome message updated!")
	return nil
}

func (h *Welcome) resetWelcome(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user) {
		return nil
	}
	if err := h.Service().GetDB().SetWelcome(ctx, chat.ID, true, db.DefaultWelcomeTemplate); err != nil {
		h.Logger().WithError(err).Error("cant reset welcome template")
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, "✅ Welcome message reset to default.")
	return nil
}

func (h *Welcome) toggleWelcome(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user) {
		return nil
	}
	arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	var enabled bool
	switch arg {
	case "on", "yes", "true":
		enabled = true
	case "off", "no", "false":
		enabled = false
	default:
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /welcome on|off")
		return nil
	}

	meta, err := h.Service().GetDB().GetChat(ctx, chat.ID)
	if err != nil {
		h.Logger().WithError(err).Error("cant load chat meta")
		return nil
	}
	template := db.DefaultWelcomeTemplate
	if meta != nil && meta.WelcomeTemplate != "" {
		template = meta.WelcomeTemplate
	}
	if err := h.Service().GetDB().SetWelcome(ctx, chat.ID, enabled, template); err != nil {
		h.Logger().WithError(err).Error("cant toggle welcome")
		return nil
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("Welcome messages %s.", state))
	return nil
}

func (h *Welcome) authorize(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) bool {
	decision := h.perms.Authorize(ctx, user.ID, permissions.ChatRef{ID: chat.ID, Private: isPrivate(chat)}, permissions.CapManageChat)
	if !decision.Allowed {
		h.ReplyHTML(chat.ID, msg.MessageID, base.DenyMessage(decision.Reason))
		return false
	}
	return true
}

// renderWelcome expands the template placeholders for one new member.
func renderWelcome(template string, chat *api.Chat, user *api.User) string {
	replacer := strings.NewReplacer(
		"{user_mention}", base.Mention(user),
		"{user_firstname}", html.EscapeString(user.FirstName),
		"{user_lastname}", html.EscapeString(user.LastName),
		"{user_username}", html.EscapeString(user.UserName),
		"{user_id}", fmt.Sprintf("%d", user.ID),
		"{chat_title}", html.EscapeString(chat.Title),
		"{chat_id}", fmt.Sprintf("%d", chat.ID),
	)
	return replacer.Replace(template)
}
