package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/musive/internal/digest"
	"github.com/deusflow/musive/internal/news"
	"github.com/deusflow/musive/internal/retry"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	// MaxMessageLen is the Bot API limit for one text message.
	MaxMessageLen = 4096
)

type Config struct {
	Token    string
	ChatID   string
	BaseURL  string
	Retry    retry.RetryConfig
	Location *time.Location
	Client   *http.Client
}

// Sink posts the digest to a Telegram chat or channel.
type Sink struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Sink {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{cfg: cfg, client: client, logger: logger.With("component", "telegram")}
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) Deliver(ctx context.Context, d news.Digest) error {
	parts := SplitMessage(digest.RenderTelegram(d, s.cfg.Location), MaxMessageLen)
	for i, text := range parts {
		attempt := 0
		err := retry.WithRetry(ctx, s.cfg.Retry, func() error {
			attempt++
			err := s.sendMessageOnce(ctx, text)
			if err != nil {
				s.logger.Warn("send failed", "part", i+1, "attempt", attempt, "err", err)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("can't send part %d/%d: %w", i+1, len(parts), err)
		}
	}
	s.logger.Debug("message sent", "parts", len(parts))
	return nil
}

// sendMessageOnce does one try to send message
func (s *Sink) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Token)

	payload := map[string]interface{}{
		"chat_id":                  s.cfg.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			s.logger.Warn("failed to close response body", "err", err)
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	err = fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

// SplitMessage cuts text into parts of at most limit bytes, preferring
// blank-line then newline boundaries so HTML tags stay intact.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(text[:limit], "\n")
		}
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				// limit is narrower than the first rune; emit it whole
				_, size := utf8.DecodeRuneInString(text)
				cut = size
			}
		}
		parts = append(parts, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

var _ digest.Sink = (*Sink)(nil)
