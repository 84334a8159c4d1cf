package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/StKraemer/LeadRadar/internal/pkg/env"
	"github.com/google/uuid"
)

const defaultAPIBaseURL = "https://api.openai.com/v1"

// Client calls the upstream AI vendor's JSON-mode chat endpoint. It is the
// only component that spends money; everything above it decides whether it
// may run at all.
type Client struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Temperature float64

	HTTPClient *http.Client
	Retry      RetryConfig
}

// NewClientFromEnv builds the upstream client from the environment.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:      strings.TrimSpace(env.GetEnv("AI_API_KEY", "")),
		APIBaseURL:  strings.TrimRight(env.GetEnv("AI_API_BASE_URL", defaultAPIBaseURL), "/"),
		Model:       env.GetEnv("AI_MODEL", "gpt-4o-mini"),
		Temperature: env.GetEnvFloat("AI_TEMPERATURE", 0.1),
		HTTPClient: &http.Client{
			Timeout: env.GetEnvDuration("AI_REQUEST_TIMEOUT", 30*time.Second),
		},
		Retry: DefaultRetryConfig(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteJSON runs a chat completion that must return a JSON object. The
// task prompt carries the serialized input payload. Transient failures
// (timeout, 429, 5xx) are retried with backoff; other 4xx and any output that
// fails to parse as a JSON object propagate immediately.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, taskPrompt string, input json.RawMessage) (json.RawMessage, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("AI_API_KEY is not configured")
	}

	task := taskPrompt
	if len(input) > 0 {
		task = taskPrompt + "\n\nInput:\n" + string(input)
	}

	body := chatRequest{
		Model:       c.Model,
		Temperature: clampTemperature(c.Temperature),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: task},
		},
	}
	body.ResponseFormat.Type = "json_object"

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	// One idempotency key for the whole attempt chain, so vendor-side
	// dedupe can kick in when a timed-out request actually landed.
	idempotencyKey := uuid.NewString()

	return RetryWithBackoff(ctx, c.Retry, func(ctx context.Context) (json.RawMessage, error) {
		return c.completeOnce(ctx, encoded, idempotencyKey)
	})
}

func (c *Client) completeOnce(ctx context.Context, encoded []byte, idempotencyKey string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			apiErr := newAPIError(ErrCodeTimeout, "request timed out", 0)
			apiErr.Cause = err
			return nil, apiErr
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newAPIError(ErrCodeRateLimit, "upstream rate limited", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, newAPIError(ErrCodeServerError, trimBody(raw), resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, newAPIError(ErrCodeInvalidRequest, trimBody(raw), resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, newAPIError(ErrCodeMalformedOutput, fmt.Sprintf("unparseable completion envelope: %v", err), resp.StatusCode)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, newAPIError(ErrCodeMalformedOutput, "empty completion", resp.StatusCode)
	}

	content := []byte(parsed.Choices[0].Message.Content)
	var object map[string]interface{}
	if err := json.Unmarshal(content, &object); err != nil {
		log.Printf("ai: model did not return valid JSON: %v", err)
		return nil, newAPIError(ErrCodeMalformedOutput, "model did not return a JSON object", resp.StatusCode)
	}

	return json.RawMessage(content), nil
}

func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 0.3 {
		return 0.3
	}
	return t
}

func trimBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
