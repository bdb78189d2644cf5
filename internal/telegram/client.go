package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/studykit/study-companion/pkg/logging"
)

const (
	// DefaultBaseURL is the public Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	// MaxMessageLen is the chunk size for long replies. Telegram caps
	// messages at 4096 chars; 3500 leaves headroom for entities.
	MaxMessageLen = 3500
)

// Client talks to the Telegram Bot API over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logging.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the Bot API base URL (tests, proxies).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 65 * time.Second},
		baseURL:    DefaultBaseURL,
		token:      token,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSecs int) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSecs,
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat, splitting long texts into ordered
// chunks. The keyboard, when present, is attached to the final chunk.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error {
	chunks := SplitChunks(text, MaxMessageLen)
	for i, chunk := range chunks {
		payload := map[string]any{
			"chat_id": chatID,
			"text":    chunk,
		}
		if keyboard != nil && i == len(chunks)-1 {
			payload["reply_markup"] = keyboard
		}
		if err := c.call(ctx, "sendMessage", payload, nil); err != nil {
			return fmt.Errorf("telegram: send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// SendText sends a plain text message with no keyboard.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.SendMessage(ctx, chatID, text, nil)
}

// EditMessageText rewrites a previously sent message in place.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	return c.EditMessage(ctx, chatID, messageID, text, nil)
}

// EditMessage rewrites a previously sent message, optionally replacing
// its inline keyboard.
func (c *Client) EditMessage(ctx context.Context, chatID, messageID int64, text string, keyboard *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}
	if err := c.call(ctx, "editMessageText", payload, nil); err != nil {
		return fmt.Errorf("telegram: edit message: %w", err)
	}
	return nil
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing the loading spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if err := c.call(ctx, "answerCallbackQuery", payload, nil); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram: %s rejected: %s", method, envelope.Description)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}

// SplitChunks splits text into rune-safe chunks of at most maxLen runes.
func SplitChunks(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = MaxMessageLen
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}
	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for len(runes) > 0 {
		n := maxLen
		if len(runes) < n {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
