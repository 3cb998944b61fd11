/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wildcardbot/gatekeeper/httpclient"
	"github.com/wildcardbot/gatekeeper/log"
)

// Bot API methods used by the bot.
const (
	MethodGetMe               = "getMe"
	MethodGetUpdates          = "getUpdates"
	MethodSendMessage         = "sendMessage"
	MethodAnswerCallbackQuery = "answerCallbackQuery"
)

// DefaultAllowedUpdates is the list of update kinds the poller subscribes to.
var DefaultAllowedUpdates = []string{"message", "callback_query"}

type apiResponse struct {
	OK          bool               `json:"ok"`
	Result      json.RawMessage    `json:"result"`
	ErrorCode   int                `json:"error_code"`
	Description string             `json:"description"`
	Parameters  *responseParameter `json:"parameters"`
}

type responseParameter struct {
	RetryAfter int `json:"retry_after"`
}

// ClientOpts provides options for NewClient.
type ClientOpts struct {
	Logger log.FieldLogger

	// Collector receives durations of Bot API requests labeled by method.
	Collector httpclient.MetricsCollector

	// Transport is the innermost RoundTripper of the client. http.DefaultTransport clone is used when nil.
	Transport http.RoundTripper
}

// Client calls Bot API methods.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.FieldLogger
}

// NewClient creates a new Client.
func NewClient(cfg *Config, opts ClientOpts) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	clientCfg := cfg.Client
	if clientCfg == nil {
		clientCfg = httpclient.NewDefaultConfig()
	}
	httpClient, err := httpclient.New(clientCfg, httpclient.Opts{
		UserAgent: cfg.UserAgent,
		Delegate:  opts.Transport,
		Logger:    logger,
		Collector: opts.Collector,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/") + "/bot" + cfg.Token + "/",
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, MethodGetMe, true, struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for updates with identifiers >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Limit:          limit,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: DefaultAllowedUpdates,
	}
	var updates []Update
	if err := c.call(ctx, MethodGetUpdates, true, req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends a text message to the chat. opts may be nil.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendMessageOpts) (*Message, error) {
	req := sendMessageRequest{ChatID: chatID, Text: text}
	if opts != nil {
		req.SendMessageOpts = *opts
	}
	var msg Message
	if err := c.call(ctx, MethodSendMessage, false, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AnswerCallbackQuery acknowledges a callback query, optionally showing text to the user.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	req := answerCallbackQueryRequest{CallbackQueryID: callbackQueryID, Text: text}
	var ok bool
	return c.call(ctx, MethodAnswerCallbackQuery, false, req, &ok)
}

func (c *Client) call(ctx context.Context, method string, idempotent bool, params, result interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	ctx = httpclient.NewContextWithRequestType(ctx, method)
	ctx = httpclient.NewContextWithIdempotentHint(ctx, idempotent)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do %s request: %w", method, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("closing response body failed", log.String("method", method), log.Error(closeErr))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var apiResp apiResponse
	if err = json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !apiResp.OK {
		apiErr := &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}

	if result == nil || len(apiResp.Result) == 0 {
		return nil
	}
	if err = json.Unmarshal(apiResp.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
