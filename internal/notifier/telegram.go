package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"BandSentinel/internal/model"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier sends signals to one chat via the Telegram Bot API.
type TelegramNotifier struct {
	sender     messageSender
	chat       tele.Recipient
	maxRetries int
	log        zerolog.Logger
}

// NewBot creates a long-polling bot with optional proxy support.
func NewBot(token, proxyURL string) (*tele.Bot, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		Client: &http.Client{Timeout: 30 * time.Second, Transport: transport},
	})
}

func NewTelegramNotifier(sender messageSender, chatID int64, log zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender:     sender,
		chat:       &tele.Chat{ID: chatID},
		maxRetries: 3,
		log:        log,
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Notify(ctx context.Context, sig model.Signal) error {
	return t.SendWithRetry(ctx, FormatSignal(sig), t.maxRetries)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	if _, err := t.sender.Send(t.chat, text, tele.ModeHTML); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(text); err != nil {
			lastErr = err
			if i == maxRetries {
				break
			}
			backoff := time.Duration(1<<uint(i)) * time.Second
			t.log.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries+1).Dur("backoff", backoff).Msg("telegram send failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
