package notifier

import (
	"context"

	"library-service/pkg/utils"

	"go.uber.org/zap"
)

// Notifier delivers a plain-text message to the staff chat.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// New returns a Telegram notifier, or a log-only one when no bot token is configured.
func New(config utils.TelegramConfig, log *zap.Logger) Notifier {
	if config.BotToken == "" || config.ChatID == "" {
		log.Warn("Telegram bot is not configured, notifications go to the log only")
		return NewLog(log)
	}
	return NewTelegram(config, log)
}

type logNotifier struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) Notifier {
	return &logNotifier{log: log.With(zap.String("notifier", "log"))}
}

func (n *logNotifier) Send(_ context.Context, text string) error {
	n.log.Info("Notification", zap.String("text", text))
	return nil
}
