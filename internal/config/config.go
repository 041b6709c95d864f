package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		OwnerID          int64    `env:"OWNER_ID,required"`
		SudoUsers        []int64  `env:"SUDO_USERS"`
		LogChannelID     int64    `env:"LOG_CHANNEL_ID"`
		EnabledHandlers  []string `env:"HANDLERS,default=enforcement,moderation,admin,welcome,notes,filters,basic"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.aoi"`
		DBPath           string   `env:"DB_PATH,default=aoi.db"`
		MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`
		Moderation       Moderation
	}

	Moderation struct {
		DefaultWarnLimit  int           `env:"WARN_LIMIT,default=3"`
		FanOutConcurrency int64         `env:"FANOUT_CONCURRENCY,default=8"`
		FanOutChatTimeout time.Duration `env:"FANOUT_CHAT_TIMEOUT,default=10s"`
		DefaultMuteFor    time.Duration `env:"DEFAULT_MUTE_FOR,default=0s"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("AOI_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}

// IsOwner reports whether userID is the configured bot owner.
func (c Config) IsOwner(userID int64) bool {
	return userID != 0 && userID == c.OwnerID
}

// IsSudo reports whether userID is the owner or a member of the sudo set.
func (c Config) IsSudo(userID int64) bool {
	if c.IsOwner(userID) {
		return true
	}
	for _, id := range c.SudoUsers {
		if id == userID {
			return true
		}
	}
	return false
}
