package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/pkg/config"
	"github.com/wonny/yieldpilot/pkg/httputil"
	"github.com/wonny/yieldpilot/pkg/logger"
	"github.com/wonny/yieldpilot/pkg/redis"
)

type fakeCache struct {
	data   map[string][]byte
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *fakeCache) put(t *testing.T, key string, value interface{}) {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	c.data[key] = raw
}

func newTestClient(t *testing.T, baseURL, quoteHTMLURL string) (*Client, *fakeCache) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Market.BaseURL = baseURL
	cfg.Market.QuoteHTMLURL = quoteHTMLURL
	cfg.Market.RatePerSec = 1000

	log := logger.NewNop()
	cache := newFakeCache()
	return NewClient(cfg, httputil.New(log).DisableRetry(), cache, log), cache
}

func TestFetchCurrentREST(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices", r.URL.Path)
		assert.Equal(t, "USDC,ETH", r.URL.Query().Get("symbols"))

		fmt.Fprint(w, `{"prices":[
			{"symbol":"USDC","price":1.0,"timestamp":"2026-08-30T10:00:00Z"},
			{"symbol":"ETH","price":4200.5,"timestamp":"2026-08-30T10:00:00Z"}
		]}`)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, "")

	points, err := client.FetchCurrent(context.Background(), []string{"USDC", "ETH"})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 1.0, points["USDC"].Price)
	assert.Equal(t, 4200.5, points["ETH"].Price)
	assert.Equal(t, "ETH", points["ETH"].Symbol)
}

func TestFetchCurrentRESTErrorNoFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, "")

	_, err := client.FetchCurrent(context.Background(), []string{"USDC"})
	assert.Error(t, err)
}

func TestFetchCurrentFallsBackToHTML(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer api.Close()

	quotes := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		fmt.Fprintf(w, `<html><body>
			<div class="quote-box">
				<span class="quote-price" data-symbol=%q>60,123.45</span>
			</div>
		</body></html>`, symbol)
	}))
	defer quotes.Close()

	client, _ := newTestClient(t, api.URL, quotes.URL)

	points, err := client.FetchCurrent(context.Background(), []string{"BTC"})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 60123.45, points["BTC"].Price)
	assert.WithinDuration(t, time.Now(), points["BTC"].Timestamp, 5*time.Second)
}

func TestFetchCurrentHTMLMissingElement(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer api.Close()

	quotes := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
	}))
	defer quotes.Close()

	client, _ := newTestClient(t, api.URL, quotes.URL)

	_, err := client.FetchCurrent(context.Background(), []string{"BTC"})
	assert.Error(t, err)
}

func TestFetchHistorical(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history", r.URL.Path)
		symbol := r.URL.Query().Get("symbol")
		assert.NotEmpty(t, r.URL.Query().Get("start"))
		assert.NotEmpty(t, r.URL.Query().Get("end"))

		fmt.Fprintf(w, `{"symbol":%q,"points":[
			{"price":100,"timestamp":"2026-08-23T00:00:00Z"},
			{"price":101,"timestamp":"2026-08-24T00:00:00Z"},
			{"price":99,"timestamp":"2026-08-25T00:00:00Z"}
		]}`, symbol)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, "")

	end := time.Now()
	series, err := client.FetchHistorical(context.Background(), []string{"ETH", "BTC"}, end.Add(-7*24*time.Hour), end)
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Len(t, series["ETH"], 3)
	assert.Equal(t, 100.0, series["ETH"][0].Price)
	assert.Equal(t, "ETH", series["ETH"][0].Symbol)
}

func TestFetchHistoricalPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "BTC" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"symbol":"ETH","points":[{"price":100,"timestamp":"2026-08-23T00:00:00Z"}]}`)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, "")

	end := time.Now()
	series, err := client.FetchHistorical(context.Background(), []string{"ETH", "BTC"}, end.Add(-24*time.Hour), end)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Contains(t, series, "ETH")
	assert.NotContains(t, series, "BTC")
}

func TestFetchHistoricalAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, "")

	end := time.Now()
	_, err := client.FetchHistorical(context.Background(), []string{"ETH", "BTC"}, end.Add(-24*time.Hour), end)
	assert.Error(t, err)
}

func TestFetchCurrentServedFromTickerCache(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, cache := newTestClient(t, srv.URL, "")
	cache.put(t, redis.TickerKey("BTC"), contracts.PricePoint{
		Symbol:    "BTC",
		Price:     60500.0,
		Timestamp: time.Now(),
	})
	cache.put(t, redis.TickerKey("ETH"), contracts.PricePoint{
		Symbol:    "ETH",
		Price:     4100.0,
		Timestamp: time.Now(),
	})

	points, err := client.FetchCurrent(context.Background(), []string{"BTC", "ETH"})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 60500.0, points["BTC"].Price)
	assert.Equal(t, 4100.0, points["ETH"].Price)
	assert.Equal(t, 0, requests)
}

func TestFetchCurrentTickerCachePartialHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only the cache-missed symbols reach the REST API
		assert.Equal(t, "ETH", r.URL.Query().Get("symbols"))
		fmt.Fprint(w, `{"prices":[{"symbol":"ETH","price":4200.5,"timestamp":"2026-08-30T10:00:00Z"}]}`)
	}))
	defer srv.Close()

	client, cache := newTestClient(t, srv.URL, "")
	cache.put(t, redis.TickerKey("BTC"), contracts.PricePoint{
		Symbol:    "BTC",
		Price:     60500.0,
		Timestamp: time.Now(),
	})

	points, err := client.FetchCurrent(context.Background(), []string{"BTC", "ETH"})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 60500.0, points["BTC"].Price)
	assert.Equal(t, 4200.5, points["ETH"].Price)
}

func TestFetchCurrentTickerCacheFailureFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"prices":[{"symbol":"BTC","price":60123.0,"timestamp":"2026-08-30T10:00:00Z"}]}`)
	}))
	defer srv.Close()

	client, cache := newTestClient(t, srv.URL, "")
	cache.getErr = fmt.Errorf("connection refused")

	points, err := client.FetchCurrent(context.Background(), []string{"BTC"})
	require.NoError(t, err)
	assert.Equal(t, 60123.0, points["BTC"].Price)
}

func TestFetchCurrentPartialCacheSurvivesAPIOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, cache := newTestClient(t, srv.URL, "")
	cache.put(t, redis.TickerKey("BTC"), contracts.PricePoint{
		Symbol:    "BTC",
		Price:     60500.0,
		Timestamp: time.Now(),
	})

	points, err := client.FetchCurrent(context.Background(), []string{"BTC", "ETH"})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 60500.0, points["BTC"].Price)
}
