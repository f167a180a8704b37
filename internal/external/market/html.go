package market

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/yieldpilot/internal/contracts"
)

// fetchCurrentHTML scrapes the configured quote page per symbol. This
// is a degraded path: prices only, timestamped at scrape time. A symbol
// whose page cannot be parsed is omitted.
func (c *Client) fetchCurrentHTML(ctx context.Context, symbols []string) (map[string]contracts.PricePoint, error) {
	points := make(map[string]contracts.PricePoint, len(symbols))

	var lastErr error
	for _, symbol := range symbols {
		price, err := c.scrapeQuote(ctx, symbol)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Quote scrape failed for symbol")
			lastErr = err
			continue
		}

		points[symbol] = contracts.PricePoint{
			Symbol:    symbol,
			Price:     price,
			Timestamp: time.Now(),
		}
	}

	if len(points) == 0 && lastErr != nil {
		return nil, fmt.Errorf("quote scrape failed for all symbols: %w", lastErr)
	}
	return points, nil
}

// scrapeQuote extracts the price from one symbol's quote page. The page
// marks it as <span class="quote-price" data-symbol="BTC">60123.45</span>.
func (c *Client) scrapeQuote(ctx context.Context, symbol string) (float64, error) {
	reqURL := fmt.Sprintf("%s?symbol=%s", strings.TrimRight(c.quoteHTMLURL, "/"), url.QueryEscape(symbol))

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return 0, fmt.Errorf("fetch quote page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return 0, fmt.Errorf("quote page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("parse quote page: %w", err)
	}

	selector := fmt.Sprintf(`span.quote-price[data-symbol=%q]`, symbol)
	text := strings.TrimSpace(doc.Find(selector).First().Text())
	if text == "" {
		return 0, fmt.Errorf("no quote element for %s", symbol)
	}

	// Quote pages format with thousands separators
	text = strings.ReplaceAll(text, ",", "")
	price, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quote price %q: %w", text, err)
	}
	return price, nil
}
