package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/observability"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

const channelTelegram = "telegram"

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	// BaseURL overrides DefaultTelegramAPI.
	BaseURL  string
	RetryMax int
	Timeout  time.Duration
}

// Telegram posts HTML messages through the Bot API sendMessage method.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *retryablehttp.Client
	logger  logrus.FieldLogger
}

// NewTelegram creates a Telegram notifier. A nil logger uses the logrus standard logger.
func NewTelegram(cfg TelegramConfig, logger logrus.FieldLogger) *Telegram {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTelegramAPI
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.RetryWaitMin = 100 * time.Millisecond
	c.RetryWaitMax = time.Second
	c.HTTPClient.Timeout = cfg.Timeout
	c.Logger = nil

	return &Telegram{
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  c,
		logger:  logger.WithField("component", "telegram"),
	}
}

// Configured reports whether both the bot token and the chat are set.
func (t *Telegram) Configured() bool {
	return t.token != "" && t.chatID != ""
}

func (t *Telegram) NotifyOpportunityDetected(ctx context.Context, d *domain.TradeDecision) error {
	return t.Send(ctx, OpportunityMessage(d))
}

func (t *Telegram) NotifyTradeExecuted(ctx context.Context, d *domain.TradeDecision, signature string) error {
	return t.Send(ctx, TradeExecutedMessage(d, signature))
}

// Send posts one HTML message. It is a no-op when the notifier is not configured.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		t.logger.Debug("telegram notification skipped: bot token or chat id not configured")
		return nil
	}

	err := t.send(ctx, text)
	observability.RecordNotification(channelTelegram, err)
	return err
}

func (t *Telegram) send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of the error.
		return fmt.Errorf("telegram send: %w", redact(err, t.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// OpportunityMessage renders the alert sent before execution.
func OpportunityMessage(d *domain.TradeDecision) string {
	return "<b>👀 Opportunity Detected</b>\n\n" + decisionLines(d)
}

// TradeExecutedMessage renders the alert sent after a committed trade.
func TradeExecutedMessage(d *domain.TradeDecision, signature string) string {
	return "<b>🚀 Trade Executed</b>\n\n" + decisionLines(d) +
		fmt.Sprintf("\nTX: <code>%s</code>", html.EscapeString(signature))
}

func decisionLines(d *domain.TradeDecision) string {
	in := html.EscapeString(displayToken(d.TokenIn))
	out := html.EscapeString(displayToken(d.TokenOut))
	return fmt.Sprintf(
		"Strategy: <b>%s</b>\nToken Pair: <b>%s → %s</b>\nAmount: <b>%s %s</b>\nConfidence: <b>%d%%</b>\nRisk Level: <b>%d/3</b>",
		d.Strategy, in, out, formatAmount(d.AmountIn), in, int(d.ConfidenceScore*100), d.RiskLevel,
	)
}

// displayToken shortens raw mint addresses; symbols pass through.
func displayToken(token string) string {
	if len(token) >= 32 {
		return FormatWallet(token)
	}
	return token
}

func formatAmount(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.cause }

func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), cause: err}
}

var _ Notifier = (*Telegram)(nil)
