package signals

import (
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"github.com/vmbbz/betmirror-sub005/pkg/data"
)

// FeedURL is the production live-activity websocket endpoint.
const FeedURL = "wss://ws-live-data.polymarket.com"

// FeedConfig tunes the live feed's reconnect and heartbeat behavior.
type FeedConfig struct {
	Reconnect      bool
	ReconnectDelay time.Duration
	ReconnectMax   int // zero means unlimited
	PingInterval   time.Duration
}

// DefaultFeedConfig reconnects forever with a short delay.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		Reconnect:      true,
		ReconnectDelay: 2 * time.Second,
		PingInterval:   5 * time.Second,
	}
}

// Feed streams tracked-wallet trades over a websocket and pushes them into a
// Monitor's dedupe path. The poller remains the source of truth; the feed
// only shortens latency, so feed failures degrade to polling rather than
// erroring out.
type Feed struct {
	url     string
	monitor *Monitor
	cfg     FeedConfig

	mu      sync.Mutex
	conn    *websocket.Conn
	wallets []string

	done      chan struct{}
	closeOnce sync.Once
	closing   atomic.Bool
}

// NewFeed builds a live feed delivering into the given monitor.
func NewFeed(rawURL string, monitor *Monitor, cfg FeedConfig) (*Feed, error) {
	if rawURL == "" {
		rawURL = FeedURL
	}
	if err := validateFeedURL(rawURL); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 5 * time.Second
	}
	return &Feed{
		url:     rawURL,
		monitor: monitor,
		cfg:     cfg,
		done:    make(chan struct{}),
	}, nil
}

func validateFeedURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch parsed.Scheme {
	case "ws", "wss":
	default:
		return errors.New("feed URL must use ws:// or wss://")
	}
	if parsed.Host == "" {
		return errors.New("feed URL host is required")
	}
	return nil
}

// Start launches the connect/read/reconnect loop and the ping loop.
func (f *Feed) Start(wallets []string) {
	f.mu.Lock()
	f.wallets = append([]string(nil), wallets...)
	f.mu.Unlock()
	go f.run()
	go f.pingLoop()
}

// SetWallets updates the subscription on the live connection.
func (f *Feed) SetWallets(wallets []string) {
	f.mu.Lock()
	f.wallets = append([]string(nil), wallets...)
	f.mu.Unlock()
	if err := f.subscribe(); err != nil {
		logs.Warnf("[signals] feed resubscribe failed: %v", err)
	}
}

// Wallets returns the current subscription filter.
func (f *Feed) Wallets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.wallets...)
}

// Close stops the feed. In-flight reads terminate with the connection.
func (f *Feed) Close() error {
	f.closing.Store(true)
	f.closeConn()
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func (f *Feed) run() {
	attempts := 0
	for {
		if f.closing.Load() {
			return
		}
		if err := f.connect(); err != nil {
			if !f.shouldReconnect(attempts) {
				logs.Errorf("[signals] feed gave up after %d attempts: %v", attempts, err)
				return
			}
			attempts++
			time.Sleep(f.cfg.ReconnectDelay)
			continue
		}

		attempts = 0
		if err := f.subscribe(); err != nil {
			logs.Warnf("[signals] feed subscribe failed: %v", err)
		}
		if err := f.readLoop(); err != nil {
			if f.closing.Load() {
				return
			}
			if !f.shouldReconnect(attempts) {
				return
			}
			attempts++
			time.Sleep(f.cfg.ReconnectDelay)
		}
	}
}

func (f *Feed) shouldReconnect(attempts int) bool {
	if !f.cfg.Reconnect {
		return false
	}
	if f.cfg.ReconnectMax == 0 {
		return true
	}
	return attempts < f.cfg.ReconnectMax
}

func (f *Feed) connect() error {
	f.closeConn()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	logs.Info("[signals] live feed connected")
	return nil
}

func (f *Feed) closeConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
		f.conn = nil
	}
}

func (f *Feed) pingLoop() {
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.mu.Lock()
			conn := f.conn
			if conn != nil {
				// The feed expects a "PING" text message, not a ws ping frame.
				_ = conn.WriteMessage(websocket.TextMessage, []byte("PING"))
			}
			f.mu.Unlock()
		}
	}
}

type feedSubscription struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Filters string `json:"filters,omitempty"`
}

type feedRequest struct {
	Action        string             `json:"action"`
	Subscriptions []feedSubscription `json:"subscriptions"`
}

func (f *Feed) subscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	if len(f.wallets) == 0 {
		return nil
	}
	filters, err := json.Marshal(map[string][]string{"proxyWallets": f.wallets})
	if err != nil {
		return err
	}
	return f.conn.WriteJSON(feedRequest{
		Action: "subscribe",
		Subscriptions: []feedSubscription{{
			Topic:   "activity",
			Type:    "trades",
			Filters: string(filters),
		}},
	})
}

type feedMessage struct {
	Topic   string     `json:"topic"`
	Type    string     `json:"type"`
	Payload data.Trade `json:"payload"`
}

func (f *Feed) readLoop() error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return errors.New("connection not established")
	}
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			logs.Warnf("[signals] feed read error: %v", err)
			return err
		}
		var msg feedMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Topic != "activity" || msg.Type != "trades" {
			continue
		}
		f.monitor.Observe(msg.Payload)
	}
}
