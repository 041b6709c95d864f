package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/bot"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/handlers/base"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
)

// Enforcement runs the per-message global-ban backstop. It is registered
// first in the chain so every group message, commands and note shorthands
// included, is checked before any other handler reacts to it: a gbanned
// author who slipped past the join check is banned and their message
// deleted, and the rest of the chain never sees the update.
type Enforcement struct {
	*base.Handler
	engine *moderation.Engine
}

func NewEnforcement(service bot.Service, engine *moderation.Engine, executor moderation.Executor) *Enforcement {
	return &Enforcement{
		Handler: base.NewHandler(service, executor, "enforcement"),
		engine:  engine,
	}
}

func (h *Enforcement) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	msg := u.Message
	if msg == nil || isPrivate(chat) {
		return true, nil
	}

	directives, err := h.engine.CheckGlobalBanOnMessage(ctx, chat.ID, user.ID, msg.MessageID)
	if err != nil {
		h.Logger().WithError(err).WithField("user_id", user.ID).Error("gban message check failed")
		return true, nil
	}
	if len(directives) == 0 {
		return true, nil
	}

	logger := h.Logger().WithFields(log.Fields{
		"chat_id": chat.ID,
		"user_id": user.ID,
	})
	if err := h.ExecuteDirectives(ctx, directives); err != nil {
		logger.WithError(err).Warn("cant enforce gban on message")
		return false, nil
	}
	logger.Info("globally banned user removed on message")
	return false, nil
}
