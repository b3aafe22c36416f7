package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"reminder-bot/internal/service"
)

// messageAPI is the part of *tgbotapi.BotAPI used to send messages.
type messageAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender sends HTML messages through the Bot API under a global rate limit.
// It implements service.Sink.
type Sender struct {
	api     messageAPI
	limiter *rate.Limiter
	log     *zap.Logger
}

var _ service.Sink = (*Sender)(nil)

func NewSender(api messageAPI, perSecond float64, log *zap.Logger) *Sender {
	return &Sender{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log.Named("sender"),
	}
}

func (s *Sender) SendText(ctx context.Context, chatID int64, text string) error {
	return s.send(ctx, chatID, text, nil)
}

func (s *Sender) send(ctx context.Context, chatID int64, text string, markup interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait send slot: %w", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := s.api.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return fmt.Errorf("telegram api %d: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *Sender) NotifyReminder(ctx context.Context, owner int64, text string, localDue time.Time, tz string) error {
	return s.SendText(ctx, owner, formatReminder(text, localDue, tz))
}

func (s *Sender) NotifyDailySummary(ctx context.Context, owner int64, items []service.DigestItem, date time.Time, tz string) error {
	return s.SendText(ctx, owner, formatDigest(items, date, tz))
}
