package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
)

// ServiceBot defines bot-specific operations
type ServiceBot interface {
	GetBot() *api.BotAPI
}

// ServiceDB defines database-specific operations
type ServiceDB interface {
	GetDB() db.Client
}

// Service is what handlers get to see of the application core.
type Service interface {
	ServiceBot
	ServiceDB
	RememberUser(ctx context.Context, user *api.User)
	RememberChat(ctx context.Context, chat *api.Chat)
}

// Handler processes one update; proceed=false stops the chain.
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
