package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/pkg/config"
	"github.com/wonny/yieldpilot/pkg/httputil"
	"github.com/wonny/yieldpilot/pkg/logger"
	"github.com/wonny/yieldpilot/pkg/redis"
)

// Client implements contracts.MarketDataClient against the price REST
// API. Current prices are served from the ticker cache first (kept
// warm by the websocket stream), then REST, then an HTML quote-page
// fallback when the API is down.
// ⭐ SSOT: market data access lives here only
type Client struct {
	http         *httputil.Client
	baseURL      string
	quoteHTMLURL string
	limiter      *rate.Limiter
	cache        contracts.CacheStore
	logger       *logger.Logger
}

// NewClient creates a market data client
func NewClient(cfg *config.Config, http *httputil.Client, cache contracts.CacheStore, log *logger.Logger) *Client {
	perSec := cfg.Market.RatePerSec
	if perSec <= 0 {
		perSec = 1
	}

	return &Client{
		http:         http,
		baseURL:      strings.TrimRight(cfg.Market.BaseURL, "/"),
		quoteHTMLURL: cfg.Market.QuoteHTMLURL,
		limiter:      rate.NewLimiter(rate.Limit(perSec), perSec),
		cache:        cache,
		logger:       log,
	}
}

// priceResponse is the /prices wire format
type priceResponse struct {
	Prices []struct {
		Symbol    string    `json:"symbol"`
		Price     float64   `json:"price"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"prices"`
}

// historyResponse is the /history wire format
type historyResponse struct {
	Symbol string `json:"symbol"`
	Points []struct {
		Price     float64   `json:"price"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"points"`
}

// FetchCurrent returns the latest price per symbol. Symbols with a
// live ticker entry in the cache are served from it; the rest come
// from the REST API, or the HTML quote page when the API is down and
// one is configured.
func (c *Client) FetchCurrent(ctx context.Context, symbols []string) (map[string]contracts.PricePoint, error) {
	points, misses := c.fromTickerCache(ctx, symbols)
	if len(misses) == 0 {
		return points, nil
	}

	fetched, err := c.fetchCurrentREST(ctx, misses)
	if err != nil {
		if c.quoteHTMLURL == "" {
			if len(points) > 0 {
				c.logger.WithError(err).Warn("Price API failed, returning ticker-cached prices only")
				return points, nil
			}
			return nil, err
		}

		c.logger.WithError(err).Warn("Price API failed, falling back to HTML quotes")
		fetched, err = c.fetchCurrentHTML(ctx, misses)
		if err != nil {
			if len(points) > 0 {
				return points, nil
			}
			return nil, err
		}
	}

	for symbol, point := range fetched {
		points[symbol] = point
	}
	return points, nil
}

// fromTickerCache returns the symbols resolvable from the live ticker
// cache and the ones that still need a fetch. A cache failure is a
// miss, never an error.
func (c *Client) fromTickerCache(ctx context.Context, symbols []string) (map[string]contracts.PricePoint, []string) {
	points := make(map[string]contracts.PricePoint, len(symbols))

	var misses []string
	for _, symbol := range symbols {
		var point contracts.PricePoint
		found, err := c.cache.Get(ctx, redis.TickerKey(symbol), &point)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Ticker cache read failed, treating as miss")
			found = false
		}
		if !found || point.Price <= 0 {
			misses = append(misses, symbol)
			continue
		}
		points[symbol] = point
	}
	return points, misses
}

func (c *Client) fetchCurrentREST(ctx context.Context, symbols []string) (map[string]contracts.PricePoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/prices?symbols=%s", c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))
	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch current prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}

	points := make(map[string]contracts.PricePoint, len(parsed.Prices))
	for _, p := range parsed.Prices {
		points[p.Symbol] = contracts.PricePoint{
			Symbol:    p.Symbol,
			Price:     p.Price,
			Timestamp: p.Timestamp,
		}
	}
	return points, nil
}

// FetchHistorical returns the price series per symbol for the window.
// A symbol that fails is logged and omitted; the call errors only when
// no symbol could be fetched at all.
func (c *Client) FetchHistorical(ctx context.Context, symbols []string, start, end time.Time) (map[string][]contracts.PricePoint, error) {
	series := make(map[string][]contracts.PricePoint, len(symbols))

	var lastErr error
	for _, symbol := range symbols {
		points, err := c.fetchHistory(ctx, symbol, start, end)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("History fetch failed for symbol")
			lastErr = err
			continue
		}
		series[symbol] = points
	}

	if len(series) == 0 && lastErr != nil {
		return nil, fmt.Errorf("history fetch failed for all symbols: %w", lastErr)
	}
	return series, nil
}

func (c *Client) fetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PricePoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/history?symbol=%s&start=%s&end=%s",
		c.baseURL,
		url.QueryEscape(symbol),
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
	)

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("history API returned status %d", resp.StatusCode)
	}

	var parsed historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}

	points := make([]contracts.PricePoint, 0, len(parsed.Points))
	for _, p := range parsed.Points {
		points = append(points, contracts.PricePoint{
			Symbol:    symbol,
			Price:     p.Price,
			Timestamp: p.Timestamp,
		})
	}
	return points, nil
}
