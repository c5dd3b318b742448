package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"partsync/internal/model"
	"partsync/internal/scheduler"
)

const telegramAPI = "https://api.telegram.org"

// Telegram sends run summaries to a Telegram chat via bot API.
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
	logger   *slog.Logger
}

// NewTelegram registers bot token and chat identifier.
func NewTelegram(botToken, chatID string, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPI,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger.With("component", "telegram"),
	}
}

// Enabled reports whether both token and chat are set.
func (t *Telegram) Enabled() bool {
	return t != nil && t.botToken != "" && t.chatID != ""
}

// Send posts text to the chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() || t.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

// Listener forwards scheduled and initial run outcomes to the chat. Manual runs are
// reported to their caller and skipped here.
func (t *Telegram) Listener() scheduler.Listener {
	return func(ev scheduler.Event) {
		if ev.Trigger == scheduler.TriggerManual {
			return
		}

		text := Summary(model.Notification{
			Message:   scheduler.NotificationMessage(ev.Result),
			HasErrors: ev.Result.HasErrors(),
			Errors:    ev.Result.Errors,
		})
		if ev.Err != nil {
			text = fmt.Sprintf("Parts update failed: %v", ev.Err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.Send(ctx, text); err != nil {
			t.logger.Warn("telegram delivery failed", "error", err)
		}
	}
}
