// Package feed streams live quote snapshots to WebSocket clients. Each
// client holds a symbol subscription set and a bounded send buffer; slow
// consumers drop frames instead of stalling the market loop.
package feed

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Client represents one connected WebSocket session.
type Client struct {
	ID   uint64
	Conn *websocket.Conn

	mu         sync.RWMutex
	symbols    map[string]bool
	allSymbols bool

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// stats
	Dropped uint64
}

var clientIDCounter uint64

// NewClient creates a client wrapping a WebSocket connection.
func NewClient(conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		ID:      atomic.AddUint64(&clientIDCounter, 1),
		Conn:    conn,
		symbols: make(map[string]bool),
		sendCh:  make(chan []byte, bufferSize),
		done:    make(chan struct{}),
	}
}

// Subscribe adds symbols to the client's subscription.
func (c *Client) Subscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		c.symbols[s] = true
	}
}

// SubscribeAll subscribes the client to the whole roster.
func (c *Client) SubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allSymbols = true
}

// Unsubscribe removes symbols from the client's subscription.
func (c *Client) Unsubscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		delete(c.symbols, s)
	}
}

// IsSubscribed checks whether the client wants updates for a symbol.
func (c *Client) IsSubscribed(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.allSymbols {
		return true
	}
	return c.symbols[symbol]
}

// IsAllSubscribed reports whether the client takes the full roster.
func (c *Client) IsAllSubscribed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allSymbols
}

// Subscribed returns the client's symbol set; nil means "all".
func (c *Client) Subscribed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.allSymbols {
		return nil
	}
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	return out
}

// Send enqueues a frame for the write pump. Returns false if the buffer
// is full and the frame was dropped.
func (c *Client) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		atomic.AddUint64(&c.Dropped, 1)
		return false
	}
}

// SendCh returns the send channel for the write pump.
func (c *Client) SendCh() <-chan []byte {
	return c.sendCh
}

// Done returns a channel closed when the client disconnects.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close terminates the client connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}
