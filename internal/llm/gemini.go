package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"billsplit/internal/bill"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

var ErrEmptyResponse = errors.New("empty gemini response")

// StatusError is a non-200 answer from the Gemini API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini api error (%d): %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request is worth retrying
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// BlockedError means Gemini refused the prompt
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "gemini blocked the request: " + e.Reason
}

type GeminiClient struct {
	apiKey        string
	model         string
	baseURL       string
	maxAttempts   uint
	retryInterval time.Duration
	httpClient    *http.Client
	log           *zap.Logger
}

type Option func(*GeminiClient)

func WithBaseURL(u string) Option {
	return func(g *GeminiClient) { g.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(g *GeminiClient) { g.httpClient = c }
}

func WithMaxAttempts(n uint) Option {
	return func(g *GeminiClient) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(g *GeminiClient) { g.retryInterval = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *GeminiClient) { g.log = l }
}

func NewGeminiClient(apiKey, model string, opts ...Option) *GeminiClient {
	g := &GeminiClient{
		apiKey:        apiKey,
		model:         model,
		baseURL:       defaultGeminiURL,
		maxAttempts:   3,
		retryInterval: time.Second,
		httpClient:    &http.Client{Timeout: 90 * time.Second},
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ExtractReceipt sends the photo to Gemini and parses the JSON answer
func (g *GeminiClient) ExtractReceipt(
	ctx context.Context,
	image []byte,
	mimeType string,
	hints []string,
) (*bill.Receipt, error) {
	if g.apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if g.model == "" {
		return nil, errors.New("missing GEMINI_MODEL")
	}
	if len(image) == 0 {
		return nil, errors.New("empty receipt image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": BuildReceiptPrompt(hints)},
					{
						"inline_data": map[string]string{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(image),
						},
					},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":      0.1,
			"maxOutputTokens":  8192,
			"responseMimeType": "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.retryInterval

	attempt := 0
	output, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		text, err := g.generate(ctx, body)
		if err == nil {
			return text, nil
		}

		var se *StatusError
		var blocked *BlockedError
		if (errors.As(err, &se) && !se.Temporary()) || errors.As(err, &blocked) {
			return "", backoff.Permanent(err)
		}

		g.log.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return "", err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(g.maxAttempts),
	)
	if err != nil {
		return nil, err
	}

	g.log.Debug("gemini raw response", zap.String("output", output))

	return ParseReceipt(output)
}

func (g *GeminiClient) generate(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewReader(body),
	)
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	// Gemini response shape
	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text    string `json:"text"`
					Thought bool   `json:"thought"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	if result.PromptFeedback.BlockReason != "" {
		return "", &BlockedError{Reason: result.PromptFeedback.BlockReason}
	}
	if len(result.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var out strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		out.WriteString(p.Text)
	}
	if strings.TrimSpace(out.String()) == "" {
		if reason := result.Candidates[0].FinishReason; reason == "SAFETY" || reason == "PROHIBITED_CONTENT" {
			return "", &BlockedError{Reason: reason}
		}
		return "", ErrEmptyResponse
	}

	return out.String(), nil
}
