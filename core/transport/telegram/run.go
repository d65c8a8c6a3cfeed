package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "wabot/core/config"
	"wabot/core/engine"
	"wabot/core/logger"
)

// Bot couples a telebot instance with its engine transport.
type Bot struct {
	bot       *tele.Bot
	transport *Transport
	cfg       *coreconfig.Config
}

// New connects to the Bot API and prepares the transport. The returned
// bot does not receive updates until Run is called.
func New(cfg *coreconfig.Config) (*Bot, error) {
	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg),
		Client: buildHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("bot initialization failed: %w", err)
	}

	logger.TG.Info("bot online",
		slog.String("event", "connect"),
		slog.String("mode", cfg.Telegram.RunMode),
		slog.String("user", bot.Me.Username),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)

	return &Bot{
		bot:       bot,
		transport: NewTransport(bot, cfg.Telegram.SendRate),
		cfg:       cfg,
	}, nil
}

// Transport returns the engine transport backed by this bot.
func (b *Bot) Transport() *Transport { return b.transport }

// Run feeds incoming text messages through the pipeline until ctx is
// cancelled.
func (b *Bot) Run(ctx context.Context, p *engine.Pipeline) error {
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		msg := fromTele(c.Message(), b.bot.Me)

		mctx := logger.WithRID(ctx, logger.BuildRID(msg.ID, msg.Chat.ID))
		mctx = logger.WithMessageMeta(mctx, msg.ID, msg.Chat.ID, msg.Sender.String())

		p.Execute(engine.NewContext(mctx, b.transport, msg))
		return nil
	})

	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()

	logger.TG.Info("update loop started", slog.String("event", "run"))
	b.bot.Start()
	logger.TG.Info("update loop stopped", slog.String("event", "stop"))
	return nil
}
