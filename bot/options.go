package bot

import "log/slog"

type Option func(b *Bot)

// WithLogger specifies the logger for the bot
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = l
	}
}
