package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/yieldpilot/pkg/config"
	"github.com/wonny/yieldpilot/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{}
	cfg.Swap.BaseURL = baseURL
	cfg.Swap.APIKey = "swap-key"

	return NewClient(cfg, logger.NewNop())
}

func TestExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap", r.URL.Path)

		var req swapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-42", req.UserID)
		assert.Equal(t, 0, req.FromBasketID)
		assert.Equal(t, 2, req.ToBasketID)
		assert.Equal(t, "swap-key", req.APIKey)

		fmt.Fprint(w, `{"success":true,"txReference":"0xabc123","gasUsed":21000}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	result, err := client.Execute(context.Background(), "user-42", 0, 2)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "0xabc123", result.TxReference)
	assert.Equal(t, int64(21000), result.GasUsed)
}

func TestExecuteBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"error":"insufficient liquidity"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	result, err := client.Execute(context.Background(), "user-42", 0, 2)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "insufficient liquidity", result.Error)
}

// A swap request is not idempotent. A 5xx may mean the service executed
// the swap and died before responding, so the request must fail once
// and never be re-sent.
func TestExecuteServerErrorNotRetried(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"success":true,"txReference":"0xabc123"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	result, err := client.Execute(context.Background(), "user-42", 0, 2)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, int32(1), requests.Load())
}
