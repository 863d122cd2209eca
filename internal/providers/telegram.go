package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/config"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/utils"
)

// TelegramEscalator forwards high-priority alerts to an operations chat.
// Escalation is best-effort: callers log failures and move on.
type TelegramEscalator struct {
	token   string
	chatID  int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

func NewTelegramEscalator(cfg config.Config, logger *logging.Logger) *TelegramEscalator {
	return &TelegramEscalator{
		token:   cfg.Telegram.BotToken,
		chatID:  cfg.Telegram.ChatID,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.Telegram.RatePerSecond)), cfg.Telegram.RatePerSecond),
		logger:  logger,
	}
}

// Escalate sends the alert to the configured chat, rate limited and with
// bounded retry.
func (t *TelegramEscalator) Escalate(ctx context.Context, alert models.Alert) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf(
		"*🚨 Alerta %s*\n%s\n\n"+
			"*Tipo:* %s\n"+
			"*Dirección:* %s\n"+
			"*Coordenadas:* %.5f, %.5f",
		alert.Priority,
		alert.Title,
		alert.Type,
		alert.Address,
		alert.Latitude,
		alert.Longitude,
	)

	return utils.Retry(ctx, t.logger, 3, time.Second, func() error {
		b, err := bot.New(t.token)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}

		params := &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat %d: %w", t.chatID, err)
		}
		return nil
	})
}
