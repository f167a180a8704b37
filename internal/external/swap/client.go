package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/pkg/config"
	"github.com/wonny/yieldpilot/pkg/httputil"
	"github.com/wonny/yieldpilot/pkg/logger"
)

// Client implements contracts.SwapExecutor against the swap execution
// service. The service is the source of truth for execution outcome;
// this client only reports what it said.
type Client struct {
	http    *httputil.Client
	baseURL string
	apiKey  string
	logger  *logger.Logger
}

// NewClient creates a swap execution client. The swap request is not
// idempotent, so this client owns its own HTTP client with retries
// disabled: a request that fails after the service executed the swap
// must never be re-sent.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		http:    httputil.New(log).DisableRetry(),
		baseURL: strings.TrimRight(cfg.Swap.BaseURL, "/"),
		apiKey:  cfg.Swap.APIKey,
		logger:  log,
	}
}

type swapRequest struct {
	UserID       string `json:"userId"`
	FromBasketID int    `json:"fromBasketId"`
	ToBasketID   int    `json:"toBasketId"`
	APIKey       string `json:"apiKey"`
}

type swapResponse struct {
	Success     bool   `json:"success"`
	TxReference string `json:"txReference"`
	GasUsed     int64  `json:"gasUsed"`
	Error       string `json:"error"`
}

// Execute requests a basket swap for the user. An error return means
// the request itself failed; a SwapResult with Success false means the
// service tried and rejected or failed the swap.
func (c *Client) Execute(ctx context.Context, userID string, fromBasketID, toBasketID int) (*contracts.SwapResult, error) {
	c.logger.WithFields(map[string]interface{}{
		"user_id":     userID,
		"from_basket": fromBasketID,
		"to_basket":   toBasketID,
	}).Info("Requesting basket swap")

	payload := swapRequest{
		UserID:       userID,
		FromBasketID: fromBasketID,
		ToBasketID:   toBasketID,
		APIKey:       c.apiKey,
	}

	resp, err := c.http.PostJSON(ctx, c.baseURL+"/swap", payload)
	if err != nil {
		return nil, fmt.Errorf("swap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("swap API returned status %d", resp.StatusCode)
	}

	var parsed swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode swap response: %w", err)
	}

	return &contracts.SwapResult{
		Success:     parsed.Success,
		TxReference: parsed.TxReference,
		GasUsed:     parsed.GasUsed,
		Error:       parsed.Error,
	}, nil
}
