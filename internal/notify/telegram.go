package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RunSummary is what an operator sees after a reminder run.
type RunSummary struct {
	Date     string
	Selected int
	Sent     int
	Skipped  int
	Failures []string
}

// TelegramReporter posts reminder run summaries to an operator chat.
type TelegramReporter struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramReporter authorizes token against the Bot API.
func NewTelegramReporter(token string, chatID int64) (*TelegramReporter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &TelegramReporter{api: api, chatID: chatID}, nil
}

// NewTelegramReporterWithAPI wraps an already authorized client.
func NewTelegramReporterWithAPI(api *tgbotapi.BotAPI, chatID int64) *TelegramReporter {
	return &TelegramReporter{api: api, chatID: chatID}
}

// Report sends the summary. The Bot API client has no context support, so ctx
// is only checked before sending.
func (r *TelegramReporter) Report(ctx context.Context, s RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(r.chatID, FormatRunSummary(s))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := r.api.Send(msg); err != nil {
		return fmt.Errorf("send run report: %w", err)
	}
	return nil
}

// FormatRunSummary renders s as Telegram HTML.
func FormatRunSummary(s RunSummary) string {
	icon := "✅"
	if len(s.Failures) > 0 {
		icon = "⚠️"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Due reminders for %s</b>\n", icon, html.EscapeString(s.Date))
	fmt.Fprintf(&b, "selected: %d · sent: %d · skipped: %d · failed: %d\n",
		s.Selected, s.Sent, s.Skipped, len(s.Failures))
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\n• %s", html.EscapeString(f))
	}
	return strings.TrimSpace(b.String())
}
