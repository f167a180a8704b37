package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/yieldpilot/pkg/config"
	"github.com/wonny/yieldpilot/pkg/httputil"
	"github.com/wonny/yieldpilot/pkg/logger"
)

const systemPrompt = "You are a portfolio yield analyst. Answer with a single JSON object and nothing else."

// Client implements contracts.RecommendationBackend over a
// chat-completions style API.
// ⭐ SSOT: recommendation backend access lives here only
type Client struct {
	http    *httputil.Client
	baseURL string
	apiKey  string
	model   string
	logger  *logger.Logger
}

// NewClient creates a recommendation backend client
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		http:    httputil.NewWithTimeout(log, cfg.LLM.Timeout),
		baseURL: strings.TrimRight(cfg.LLM.BaseURL, "/"),
		apiKey:  cfg.LLM.APIKey,
		model:   cfg.LLM.Model,
		logger:  log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the analysis prompt and returns the raw completion
// text. Parsing and validation happen in the advisor; this layer only
// moves bytes.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}

	content := parsed.Choices[0].Message.Content
	c.logger.WithField("bytes", len(content)).Debug("Received recommendation completion")
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
