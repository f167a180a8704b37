package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/yieldpilot/internal/contracts"
	"github.com/wonny/yieldpilot/pkg/config"
	"github.com/wonny/yieldpilot/pkg/logger"
	"github.com/wonny/yieldpilot/pkg/redis"
)

const (
	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 5 * time.Minute
	pongWait          = 60 * time.Second
	pingInterval      = 30 * time.Second
	writeWait         = 10 * time.Second
)

// Stream keeps the current-price cache warm from the ticker websocket.
// The aggregation cycle does not depend on it; it only narrows the gap
// between consecutive REST fetches.
type Stream struct {
	streamURL string
	symbols   []string
	cache     contracts.CacheStore
	logger    *logger.Logger

	conn   *websocket.Conn
	connMu sync.RWMutex

	stopCh chan struct{}
	doneCh chan struct{}
}

// tickerMessage is the stream wire format
type tickerMessage struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// NewStream creates a ticker stream for the tracked symbols
func NewStream(cfg *config.Config, cache contracts.CacheStore, log *logger.Logger) *Stream {
	return &Stream{
		streamURL: cfg.Market.StreamURL,
		symbols:   cfg.Market.Symbols,
		cache:     cache,
		logger:    log,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start connects and begins consuming ticker updates
func (s *Stream) Start(ctx context.Context) error {
	s.logger.WithField("symbols", s.symbols).Info("Starting ticker stream")

	if err := s.connect(ctx); err != nil {
		return fmt.Errorf("initial connection failed: %w", err)
	}

	go s.readLoop(ctx)
	go s.pingLoop()

	return nil
}

// Stop closes the stream and waits for the read loop to exit
func (s *Stream) Stop() {
	s.logger.Info("Stopping ticker stream")

	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	<-s.doneCh
}

func (s *Stream) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL, nil)
	if err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	subscribe := map[string]interface{}{
		"op":      "subscribe",
		"channel": "ticker",
		"symbols": strings.Join(s.symbols, ","),
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.logger.Info("Ticker stream connected")
	return nil
}

// readLoop consumes messages and reconnects with backoff on failure
func (s *Stream) readLoop(ctx context.Context) {
	defer close(s.doneCh)

	delay := reconnectDelay
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.connMu.RLock()
		conn := s.conn
		s.connMu.RUnlock()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}

			s.logger.WithError(err).Warn("Ticker stream read failed, reconnecting")
			time.Sleep(delay)
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}

			if err := s.connect(ctx); err != nil {
				s.logger.WithError(err).Warn("Ticker stream reconnect failed")
			}
			continue
		}
		delay = reconnectDelay

		s.handleMessage(ctx, raw)
	}
}

// handleMessage caches one ticker update
func (s *Stream) handleMessage(ctx context.Context, raw []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.WithError(err).Debug("Skipping unparseable stream message")
		return
	}
	if msg.Symbol == "" || msg.Price <= 0 {
		return
	}

	point := contracts.PricePoint{
		Symbol:    msg.Symbol,
		Price:     msg.Price,
		Timestamp: time.UnixMilli(msg.Timestamp),
	}

	if err := s.cache.Set(ctx, redis.TickerKey(msg.Symbol), point, redis.TTLTicker); err != nil {
		s.logger.WithError(err).WithField("symbol", msg.Symbol).Warn("Ticker cache write failed")
	}
}

// pingLoop keeps the connection alive
func (s *Stream) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.connMu.RLock()
			conn := s.conn
			s.connMu.RUnlock()

			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.WithError(err).Debug("Ping failed")
			}
		}
	}
}
