package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/config"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/handlers/base"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/policy/permissions"
)

// Moderation routes the restriction commands to the engine and executes
// the directives it returns. Authorization happens here, at the top of
// each command; the engine itself never checks the actor.
type Moderation struct {
	*base.Handler
	engine *moderation.Engine
	perms  *permissions.Evaluator
	cfg    config.Config
}

func NewModeration(service bot.Service, engine *moderation.Engine, perms *permissions.Evaluator, executor moderation.Executor) *Moderation {
	return &Moderation{
		Handler: base.NewHandler(service, executor, "moderation"),
		engine:  engine,
		perms:   perms,
		cfg:     config.Get(),
	}
}

func (h *Moderation) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	msg := u.Message
	if msg == nil || !msg.IsCommand() {
		return true, nil
	}

	switch msg.Command() {
	case "ban":
		return false, h.restrictCommand(ctx, msg, chat, user, permissions.CapBan, "ban", h.engine.Ban)
	case "unban":
		return false, h.restrictCommand(ctx, msg, chat, user, permissions.CapBan, "unban", h.engine.Unban)
	case "kick":
		return false, h.restrictCommand(ctx, msg, chat, user, permissions.CapBan, "kick", h.engine.Kick)
	case "mute":
		return false, h.mute(ctx, msg, chat, user)
	case "unmute":
		return false, h.restrictCommand(ctx, msg, chat, user, permissions.CapMute, "unmute", h.engine.Unmute)
	case "warn":
		return false, h.warn(ctx, msg, chat, user)
	case "unwarn":
		return false, h.unwarn(ctx, msg, chat, user)
	case "warns":
		return false, h.warns(ctx, msg, chat)
	case "setwarnlimit":
		return false, h.setWarnLimit(ctx, msg, chat, user)
	case "gban":
		return false, h.gban(ctx, msg, chat, user)
	case "ungban":
		return false, h.ungban(ctx, msg, chat, user)
	case "gbanlist":
		return false, h.gbanList(ctx, msg, chat, user)
	}
	return true, nil
}

func (h *Moderation) authorize(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User, cap permissions.Capability) bool {
	decision := h.perms.Authorize(ctx, user.ID, permissions.ChatRef{ID: chat.ID, Private: isPrivate(chat)}, cap)
	if !decision.Allowed {
		h.ReplyHTML(chat.ID, msg.MessageID, base.DenyMessage(decision.Reason))
		return false
	}
	return true
}

type restrictOp func(ctx context.Context, chatID, targetID int64) ([]moderation.Directive, error)

// restrictCommand is the shared shape of ban/unban/kick/unmute: authorize,
// extract the target, let the engine decide, execute what it returns.
func (h *Moderation) restrictCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User, cap permissions.Capability, verb string, op restrictOp) error {
	if !h.authorize(ctx, msg, chat, user, cap) {
		return nil
	}
	targetID, reason := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("You need to specify a user to %s: reply to their message or pass an id.", verb))
		return nil
	}

	directives, err := op(ctx, chat.ID, targetID)
	if err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, verb, err)
		return nil
	}
	if err := h.ExecuteDirectives(ctx, directives); err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, verb, err)
		return nil
	}

	text := fmt.Sprintf("✅ <b>%s</b>: %s\n👮 <b>By:</b> %s", capitalize(verb), base.MentionID(targetID), base.Mention(user))
	if reason != "" {
		text += "\n<b>Reason:</b> " + reason
	}
	h.ReplyHTML(chat.ID, msg.MessageID, text)
	h.Logger().WithFields(log.Fields{
		"chat_id":   chat.ID,
		"target_id": targetID,
		"actor_id":  user.ID,
		"action":    verb,
	}).Info("moderation action")
	return nil
}

func (h *Moderation) mute(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapMute) {
		return nil
	}
	targetID, rest := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "You need to specify a user to mute: reply to their message or pass an id.")
		return nil
	}

	duration := h.cfg.Moderation.DefaultMuteFor
	reason := rest
	if fields := strings.Fields(rest); len(fields) > 0 {
		if seconds, ok := parseDuration(fields[0]); ok {
			duration = time.Duration(seconds) * time.Second
			reason = strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
		}
	}

	directives, err := h.engine.Mute(ctx, chat.ID, targetID, duration)
	if err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "mute", err)
		return nil
	}
	if err := h.ExecuteDirectives(ctx, directives); err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "mute", err)
		return nil
	}

	text := fmt.Sprintf("🔇 <b>Muted:</b> %s\n👮 <b>By:</b> %s", base.MentionID(targetID), base.Mention(user))
	if duration > 0 {
		text += fmt.Sprintf("\n<b>For:</b> %s", duration)
	}
	if reason != "" {
		text += "\n<b>Reason:</b> " + reason
	}
	h.ReplyHTML(chat.ID, msg.MessageID, text)
	return nil
}

func (h *Moderation) warn(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapWarn) {
		return nil
	}
	targetID, reason := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "You need to specify a user to warn: reply to their message or pass an id.")
		return nil
	}

	result, err := h.engine.Warn(ctx, chat.ID, targetID, user.ID, reason)
	if err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "warn", err)
		return nil
	}

	text := fmt.Sprintf("⚠️ <b>Warning %d/%d</b>\n<b>User:</b> %s\n<b>By:</b> %s",
		result.Count, result.Threshold, base.MentionID(targetID), base.Mention(user))
	if reason != "" {
		text += "\n<b>Reason:</b> " + reason
	}
	if result.Escalated {
		if err := h.ExecuteDirectives(ctx, result.Directives); err != nil {
			h.reportEngineError(chat.ID, msg.MessageID, "warn", err)
			return nil
		}
		text += "\n\n<b>User has been banned for exceeding the warning limit!</b>"
	}
	h.ReplyHTML(chat.ID, msg.MessageID, text)
	return nil
}

func (h *Moderation) unwarn(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapWarn) {
		return nil
	}
	targetID, _ := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "You need to specify a user to remove warnings from.")
		return nil
	}

	cleared, err := h.engine.Unwarn(ctx, chat.ID, targetID)
	if err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "unwarn", err)
		return nil
	}
	if cleared == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "This user has no warnings.")
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("🎯 <b>Warnings reset</b>\n<b>User:</b> %s\n<b>Cleared:</b> %d warning(s)", base.MentionID(targetID), cleared))
	return nil
}

func (h *Moderation) warns(ctx context.Context, msg *api.Message, chat *api.Chat) error {
	targetID, _ := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "You need to specify a user: reply to their message or pass an id.")
		return nil
	}

	warnings, err := h.engine.Warnings(ctx, chat.ID, targetID)
	if err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "warns", err)
		return nil
	}
	if len(warnings) == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "This user has no warnings.")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Warnings for %s:</b>\n", base.MentionID(targetID))
	for i, w := range warnings {
		reason := w.Reason
		if reason == "" {
			reason = "no reason"
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, reason)
	}
	h.ReplyHTML(chat.ID, msg.MessageID, sb.String())
	return nil
}

func (h *Moderation) setWarnLimit(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapManageChat) {
		return nil
	}
	arg := strings.TrimSpace(msg.CommandArguments())
	limit, err := strconv.Atoi(arg)
	if err != nil || limit < 1 {
		h.ReplyHTML(chat.ID, msg.MessageID, "Usage: /setwarnlimit &lt;positive number&gt;")
		return nil
	}
	if err := h.Service().GetDB().SetSetting(ctx, chat.ID, db.SettingWarnLimit, strconv.Itoa(limit)); err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "setwarnlimit", err)
		return nil
	}
	h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("Warning limit set to <b>%d</b>.", limit))
	return nil
}

func (h *Moderation) gban(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapGlobalBan) {
		return nil
	}
	targetID, reason := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "You need to specify a user to globally ban.")
		return nil
	}
	if reason == "" {
		reason = "No reason provided"
	}

	result, err := h.engine.GlobalBan(ctx, user.ID, targetID, reason)
	if err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "gban", err)
		return nil
	}

	if result.Duplicate {
		h.ReplyHTML(chat.ID, msg.MessageID, fmt.Sprintf("User %s is already globally banned. Updated reason: %s", base.MentionID(targetID), reason))
		return nil
	}

	text := fmt.Sprintf(
		"🌐 <b>Global Ban Complete</b>\n<b>User:</b> %s\n<b>By:</b> %s\n<b>Reason:</b> %s\n<b>Affected groups:</b> %d/%d",
		base.MentionID(targetID), base.Mention(user), reason, result.ChatsSucceeded, result.ChatsAttempted)
	h.ReplyHTML(chat.ID, msg.MessageID, text)
	h.announce(fmt.Sprintf(
		"🌐 <b>Global Ban</b>\n<b>User:</b> %s\n<b>By:</b> %s (<code>%d</code>)\n<b>Reason:</b> %s\n<b>Affected groups:</b> %d",
		base.MentionID(targetID), base.Mention(user), user.ID, reason, result.ChatsSucceeded))
	return nil
}

func (h *Moderation) ungban(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapGlobalBan) {
		return nil
	}
	targetID, _ := extractTarget(msg)
	if targetID == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "You need to specify a user to remove from the global ban list.")
		return nil
	}

	result, err := h.engine.GlobalUnban(ctx, targetID)
	if err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "ungban", err)
		return nil
	}
	if !result.Accepted {
		h.ReplyHTML(chat.ID, msg.MessageID, "This user is not globally banned.")
		return nil
	}

	text := fmt.Sprintf(
		"🌐 <b>Global Unban Complete</b>\n<b>User:</b> %s\n<b>By:</b> %s\n<b>Affected groups:</b> %d/%d",
		base.MentionID(targetID), base.Mention(user), result.ChatsSucceeded, result.ChatsAttempted)
	h.ReplyHTML(chat.ID, msg.MessageID, text)
	h.announce(fmt.Sprintf(
		"🌐 <b>Global Unban</b>\n<b>User:</b> %s\n<b>By:</b> %s (<code>%d</code>)",
		base.MentionID(targetID), base.Mention(user), user.ID))
	return nil
}

func (h *Moderation) gbanList(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if !h.authorize(ctx, msg, chat, user, permissions.CapGlobalBan) {
		return nil
	}
	bans, err := h.engine.GlobalBans(ctx)
	if err != nil {
		h.reportEngineError(chat.ID, msg.MessageID, "gbanlist", err)
		return nil
	}
	if len(bans) == 0 {
		h.ReplyHTML(chat.ID, msg.MessageID, "There are no globally banned users.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("<b>Globally banned users:</b>\n")
	for _, ban := range bans {
		reason := ban.Reason
		if reason == "" {
			reason = "no reason"
		}
		fmt.Fprintf(&sb, "• <code>%d</code>: %s\n", ban.UserID, reason)
	}
	h.ReplyHTML(chat.ID, msg.MessageID, sb.String())
	return nil
}

// announce posts to the configured log channel, best effort.
func (h *Moderation) announce(text string) {
	if h.cfg.LogChannelID == 0 {
		return
	}
	msg := api.NewMessage(h.cfg.LogChannelID, text)
	msg.ParseMode = api.ModeHTML
	if _, err := h.Service().GetBot().Send(msg); err != nil {
		h.Logger().WithError(err).Warn("cant announce to log channel")
	}
}

func (h *Moderation) reportEngineError(chatID int64, replyTo int, verb string, err error) {
	if denied, ok := moderation.AsDenied(err); ok {
		h.ReplyHTML(chatID, replyTo, base.DenyMessage(denied.Reason))
		return
	}
	h.Logger().WithError(errors.WithMessage(err, verb)).Error("engine operation failed")
	h.ReplyHTML(chatID, replyTo, fmt.Sprintf("Could not %s the user, something went wrong.", verb))
}
