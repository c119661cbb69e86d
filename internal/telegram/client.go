package telegram

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
)

const (
	defaultAPIURL = "https://api.telegram.org"

	// MaxDownloadSize is the Bot API getFile limit
	MaxDownloadSize = 20 << 20
)

var ErrFileTooLarge = errors.New("file exceeds the 20MB bot download limit")

// APIError is an ok=false answer from the Bot API
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s failed (%d): %s", e.Method, e.Code, e.Description)
}

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultAPIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at another API host (tests, local bot API server)
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// call POSTs params as JSON to a Bot API method and decodes "result" into out
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the URL carries the token, keep it out of logs
		return fmt.Errorf("telegram %s request failed: %w", method, errors.Unwrap(err))
	}
	defer resp.Body.Close()

	var envelope struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: decode response (status %d): %w", method, resp.StatusCode, err)
	}

	if !envelope.OK {
		code := envelope.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{Method: method, Code: code, Description: envelope.Description}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", struct{}{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var f File
	if err := c.call(ctx, "getFile", map[string]string{"file_id": fileID}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DownloadFile fetches the file bytes together with the served content type
func (c *Client) DownloadFile(ctx context.Context, f *File) ([]byte, string, error) {
	if f == nil || f.FilePath == "" {
		return nil, "", errors.New("file has no download path")
	}
	if f.FileSize > MaxDownloadSize {
		return nil, "", ErrFileTooLarge
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, f.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("telegram file download failed: %w", errors.Unwrap(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("telegram file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxDownloadSize {
		return nil, "", ErrFileTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

type replyParameters struct {
	MessageID                int64 `json:"message_id"`
	AllowSendingWithoutReply bool  `json:"allow_sending_without_reply"`
}

type sendMessageRequest struct {
	ChatID          int64            `json:"chat_id"`
	Text            string           `json:"text"`
	ParseMode       string           `json:"parse_mode,omitempty"`
	ReplyParameters *replyParameters `json:"reply_parameters,omitempty"`
}

// SendMessage sends HTML text to chatID, as a reply when replyTo > 0
func (c *Client) SendMessage(ctx context.Context, chatID, replyTo int64, html string) error {
	req := sendMessageRequest{
		ChatID:    chatID,
		Text:      html,
		ParseMode: "HTML",
	}
	if replyTo > 0 {
		req.ReplyParameters = &replyParameters{MessageID: replyTo, AllowSendingWithoutReply: true}
	}
	return c.call(ctx, "sendMessage", req, nil)
}

// SetWebhook registers url with Telegram. secret is echoed back in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	params := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message"},
	}
	if secret != "" {
		params["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", params, nil)
}
