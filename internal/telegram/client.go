package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// telegramAPIBase is the Bot API endpoint root.
const telegramAPIBase = "https://api.telegram.org"

// Client is a typed HTTP client for the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom API base URL (used in tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.client = client }
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: bot token not configured")
	}
	c := &Client{
		token:   token,
		baseURL: telegramAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the bot token. The webhook receiver embeds it in its
// route path as a capability token.
func (c *Client) Token() string { return c.token }

// --- Wire types ---

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type sendMessageRequest struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
}

type getUpdatesRequest struct {
	Offset  int64 `json:"offset,omitempty"`
	Timeout int   `json:"timeout,omitempty"`
}

type setWebhookRequest struct {
	URL string `json:"url"`
}

// SendOptions carries the optional parts of a message send.
type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	ReplyMarkup    *InlineKeyboardMarkup
}

// --- Public methods ---

// SendMessage posts a text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) error {
	req := sendMessageRequest{
		ChatID: chatID,
		Text:   text,
	}
	if opts != nil {
		req.ParseMode = opts.ParseMode
		req.DisableWebPagePreview = opts.DisablePreview
		req.ReplyMarkup = opts.ReplyMarkup
	}
	_, err := c.call(ctx, "sendMessage", req)
	return err
}

// AnswerCallback acknowledges a callback query so the client stops
// showing its loading indicator. Must be sent for every callback,
// regardless of downstream outcome.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := c.call(ctx, "answerCallbackQuery", answerCallbackRequest{CallbackQueryID: callbackID})
	return err
}

// GetUpdates long-polls for inbound updates after offset. timeoutSec
// is the server-side hold time; the HTTP request itself is bounded a
// few seconds beyond it.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec+10)*time.Second)
	defer cancel()

	result, err := c.call(ctx, "getUpdates", getUpdatesRequest{Offset: offset, Timeout: timeoutSec})
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("telegram: parse updates: %w", err)
	}
	return updates, nil
}

// SetWebhook registers url as the webhook endpoint for this bot.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	_, err := c.call(ctx, "setWebhook", setWebhookRequest{URL: url})
	return err
}

// DeleteWebhook unregisters the webhook, required before long-polling.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := c.call(ctx, "deleteWebhook", struct{}{})
	return err
}

// call posts a JSON request to a Bot API method and unwraps the
// response envelope.
func (c *Client) call(ctx context.Context, method string, body any) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("telegram: %s: decode response: %w", method, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("telegram: %s failed: %s", method, envelope.Description)
	}
	return envelope.Result, nil
}
