package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RelayError is a non-2xx response from the chat provider. Callers can use
// errors.As to inspect it.
type RelayError struct {
	StatusCode  int
	Description string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("telegram: %d: %s", e.StatusCode, e.Description)
}

// TelegramConfig holds configuration for creating a TelegramClient.
type TelegramConfig struct {
	// APIURL is the Bot API base URL, e.g. "https://api.telegram.org".
	APIURL string
	// HTTPClient is used for all requests. If nil, a client with Timeout is used.
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// TelegramClient sends messages through the Telegram Bot API. Bot tokens are
// supplied per call because each owner configures their own bot.
type TelegramClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewTelegramClient(cfg TelegramConfig) (*TelegramClient, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("telegram: APIURL is required")
	}
	if _, err := url.Parse(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("telegram: invalid APIURL %q: %w", cfg.APIURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TelegramClient{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendPhotoRequest struct {
	ChatID  string `json:"chat_id"`
	Photo   string `json:"photo"`
	Caption string `json:"caption,omitempty"`
}

// SendMessage posts a Markdown text message to chatID.
func (c *TelegramClient) SendMessage(ctx context.Context, token, chatID, text string) error {
	return c.doRequest(ctx, token, "sendMessage", sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
}

// SendPhoto posts a photo by URL to chatID.
func (c *TelegramClient) SendPhoto(ctx context.Context, token, chatID, photoURL, caption string) error {
	return c.doRequest(ctx, token, "sendPhoto", sendPhotoRequest{
		ChatID:  chatID,
		Photo:   photoURL,
		Caption: caption,
	})
}

func (c *TelegramClient) doRequest(ctx context.Context, token, method string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("telegram: encode %s body: %w", method, err)
	}

	requestURL := c.baseURL + "/bot" + token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("telegram: create %s request: %w", method, c.redact(err, token))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, c.redact(err, token))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	relayErr := &RelayError{StatusCode: resp.StatusCode}
	var apiErr struct {
		Description string `json:"description"`
	}
	if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Description != "" {
		relayErr.Description = apiErr.Description
	} else {
		relayErr.Description = strings.TrimSpace(string(respBody))
	}
	return relayErr
}

// redact strips the bot token from transport errors, which embed the URL.
func (c *TelegramClient) redact(err error, token string) error {
	var urlErr *url.Error
	if token != "" && errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, token, "<redacted>"),
			Err: urlErr.Err,
		}
	}
	return err
}
