package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultAPIURL = "https://api.telegram.org"

// ErrNotConfigured: нет токена бота или chat id, отправка пропускается.
var ErrNotConfigured = errors.New("telegram credentials not set")

// Notifier доставляет текстовые сообщения.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// APIError: ответ Telegram с ok=false или не-2xx статусом.
type APIError struct {
	Status      int
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: http %d: %s", e.Status, e.Description)
}

type Config struct {
	APIURL    string
	BotToken  string
	ChatID    string
	ParseMode string // Markdown по умолчанию
	Timeout   time.Duration
}

type Telegram struct {
	cli *http.Client
	cfg Config
	log *zap.Logger
}

func NewTelegram(cfg Config, cli *http.Client, log *zap.Logger) *Telegram {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cli == nil {
		cli = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{cli: cli, cfg: cfg, log: log}
}

func (t *Telegram) Configured() bool {
	return t.cfg.BotToken != "" && t.cfg.ChatID != ""
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send вызывает sendMessage. Без учётных данных возвращает ErrNotConfigured, ничего не отправляя.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(sendMessage{ChatID: t.cfg.ChatID, Text: text, ParseMode: t.cfg.ParseMode})
	if err != nil {
		return err
	}
	u := strings.TrimRight(t.cfg.APIURL, "/") + "/bot" + t.cfg.BotToken + "/sendMessage"
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", redact(err, t.cfg.BotToken))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.cli.Do(req)
	if err != nil {
		// в тексте ошибки url с токеном
		return fmt.Errorf("telegram: %w", redact(err, t.cfg.BotToken))
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var ar apiResponse
	_ = json.Unmarshal(b, &ar)
	if resp.StatusCode/100 != 2 || !ar.OK {
		desc := ar.Description
		if desc == "" {
			desc = strings.TrimSpace(string(b))
		}
		return &APIError{Status: resp.StatusCode, Code: ar.ErrorCode, Description: desc}
	}
	t.log.Info("telegram notification sent")
	return nil
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "***"), err: err}
}

// redactedError прячет токен в тексте, но оставляет цепочку для errors.Is.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
