package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
)

type service struct {
	bot *api.BotAPI
	db  db.Client
}

func NewService(bot *api.BotAPI, db db.Client) *service {
	return &service{
		bot: bot,
		db:  db,
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

// RememberUser refreshes the user's stored identity. Display fields drift;
// the row itself is permanent.
func (s *service) RememberUser(ctx context.Context, user *api.User) {
	if user == nil || user.ID == 0 {
		return
	}
	err := s.db.UpsertUser(ctx, &db.UserMeta{
		ID:        user.ID,
		UserName:  user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
	if err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("cant remember user")
	}
}

// RememberChat records the chat so the global-ban fan-out knows about it.
// Private chats are stored too but excluded from fan-out by type.
func (s *service) RememberChat(ctx context.Context, chat *api.Chat) {
	if chat == nil || chat.ID == 0 {
		return
	}
	err := s.db.UpsertChat(ctx, &db.ChatMeta{
		ID:              chat.ID,
		Title:           chat.Title,
		Type:            chat.Type,
		WelcomeEnabled:  true,
		WelcomeTemplate: db.DefaultWelcomeTemplate,
	})
	if err != nil {
		log.WithError(err).WithField("chat_id", chat.ID).Warn("cant remember chat")
	}
}
