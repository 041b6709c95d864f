package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/infra"
)

// Poller is the lifecycle component that drives the long-poll loop. Each
// update is processed synchronously; ordering within a chat matters for
// moderation commands.
type Poller struct {
	bot       *api.BotAPI
	processor *UpdateProcessor
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewPoller(bot *api.BotAPI, processor *UpdateProcessor) *Poller {
	return &Poller{
		bot:       bot,
		processor: processor,
	}
}

func (p *Poller) Start(_ context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := p.bot.GetUpdatesChan(updateConfig)

	go func() {
		<-runCtx.Done()
		close(p.done)
	}()
	go func() {
		infra.GoRecoverable(-1, "update poller", func() {
			for {
				select {
				case <-runCtx.Done():
					return
				case update, ok := <-updates:
					if !ok {
						return
					}
					if err := p.processor.Process(runCtx, &update); err != nil {
						log.WithError(err).Error("cant process update")
					}
				}
			}
		})
	}()
	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	p.bot.StopReceivingUpdates()
	if p.cancel != nil {
		p.cancel()
	}
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
