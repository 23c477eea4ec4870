package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TelegramNotifier pushes alert digests through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram channel.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the digest as one text message.
func (n *TelegramNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return n.sendText(ctx, renderTelegramDigest(alerts), len(alerts), "alert digest sent (telegram)")
}

func (n *TelegramNotifier) sendText(ctx context.Context, text string, alerts int, doneMsg string) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Int("alerts", alerts).Msg(doneMsg)
	return nil
}

// NotifySummary sends the summary as one text message.
func (n *TelegramNotifier) NotifySummary(ctx context.Context, summary Summary) error {
	return n.sendText(ctx, RenderSummaryText(summary), len(summary.Alerts), "summary sent (telegram)")
}

func renderTelegramDigest(alerts []Alert) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Revenue Alerts] %d new mention(s)\n", len(alerts)))
	for _, alert := range alerts {
		builder.WriteString(fmt.Sprintf("\n%s: $%sM %s\n", alert.Company, alert.AmountMillions.StringFixed(1), alert.Kind))
		builder.WriteString(fmt.Sprintf("Source: %s\n", alert.Source))
		if alert.Title != "" {
			builder.WriteString(alert.Title + "\n")
		}
		if alert.URL != "" {
			builder.WriteString(alert.URL + "\n")
		}
	}
	return builder.String()
}

var (
	_ Notifier        = (*TelegramNotifier)(nil)
	_ SummaryNotifier = (*TelegramNotifier)(nil)
)
