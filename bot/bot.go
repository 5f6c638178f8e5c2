package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

const pollingTimeout = 60 // seconds

// Bot is the Telegram front of the quote service
type Bot struct {
	bot       *telego.Bot
	responder *Responder
	logger    *slog.Logger
}

// New creates a new Telegram bot instance
func New(token string, responder *Responder, opts ...Option) (*Bot, error) {
	tb, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}

	b := &Bot{
		bot:       tb,
		responder: responder,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Start polls for updates and answers the commands until the context is done [BLOCKING]
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: pollingTimeout,
	})
	if err != nil {
		return fmt.Errorf("unable to start long polling: %w", err)
	}

	bh, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		return fmt.Errorf("unable to create bot handler: %w", err)
	}

	// Unknown commands are answered with a hint as well
	bh.HandleMessage(b.handleCommand, th.AnyCommand())

	errCh := make(chan error, 1)

	go func() {
		errCh <- bh.Start()
	}()

	b.logger.Info("bot started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("bot handler stopped: %w", err)
		}

		return nil
	}

	if err := bh.Stop(); err != nil {
		b.logger.Error("unable to stop bot handler", "err", err)
	}

	b.logger.Info("bot shut down")

	return nil
}

func (b *Bot) handleCommand(ctx *th.Context, msg telego.Message) error {
	reply := b.responder.Reply(ctx, msg.Text)

	b.logger.Debug(
		"answered command",
		"chat_id", msg.Chat.ID,
		"command", msg.Text,
	)

	if _, err := ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(msg.Chat.ID), reply)); err != nil {
		b.logger.Error(
			"unable to send reply",
			"chat_id", msg.Chat.ID,
			"err", err,
		)

		return fmt.Errorf("unable to send reply: %w", err)
	}

	return nil
}
