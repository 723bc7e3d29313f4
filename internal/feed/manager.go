package feed

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jornvale/salaryman/go-market/internal/engine"
	"github.com/jornvale/salaryman/go-market/internal/instrument"
)

// Frame types pushed to clients.
const (
	FrameTick   = "tick"
	FrameRoster = "roster"
)

// tickFrame carries one quote batch.
type tickFrame struct {
	Type   string         `json:"type"`
	Stocks []engine.Stock `json:"stocks"`
}

// rosterFrame lists the tradable instruments, sent after a subscribe.
type rosterFrame struct {
	Type        string                  `json:"type"`
	Instruments []instrument.Instrument `json:"instruments"`
}

// Manager handles client registration, subscriptions, and quote fan-out.
type Manager struct {
	mu         sync.RWMutex
	clients    map[uint64]*Client
	roster     []instrument.Instrument
	known      map[string]bool
	bufferSize int
}

// NewManager creates a feed manager over the given roster.
func NewManager(roster []instrument.Instrument, bufferSize int) *Manager {
	known := make(map[string]bool, len(roster))
	for _, inst := range roster {
		known[inst.Symbol] = true
	}
	return &Manager{
		clients:    make(map[uint64]*Client),
		roster:     roster,
		known:      known,
		bufferSize: bufferSize,
	}
}

// Register adds a new client.
func (m *Manager) Register(conn *websocket.Conn) *Client {
	c := NewClient(conn, m.bufferSize)

	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()

	log.Printf("feed client %d connected (%s)", c.ID, conn.RemoteAddr())
	return c
}

// Unregister removes a client.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	delete(m.clients, c.ID)
	m.mu.Unlock()

	c.Close()
	log.Printf("feed client %d disconnected", c.ID)
}

// ResolveSymbols filters a request down to known symbols. Returns all=true
// for "*".
func (m *Manager) ResolveSymbols(symbols []string) (known []string, all bool) {
	for _, s := range symbols {
		if s == "*" {
			return nil, true
		}
		if m.known[s] {
			known = append(known, s)
		}
	}
	return known, false
}

// Broadcast fans a tick snapshot out to every subscribed client. The
// full-roster frame is encoded once and shared; partial subscriptions get
// a per-client filtered frame. Wire it to the engine with Subscribe.
func (m *Manager) Broadcast(stocks []engine.Stock) {
	if len(stocks) == 0 {
		return
	}

	var full []byte
	var fullOnce sync.Once

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.clients {
		if c.IsAllSubscribed() {
			fullOnce.Do(func() {
				full = encodeTick(stocks)
			})
			if full != nil {
				c.Send(full)
			}
			continue
		}

		var mine []engine.Stock
		for _, s := range stocks {
			if c.IsSubscribed(s.Symbol) {
				mine = append(mine, s)
			}
		}
		if len(mine) == 0 {
			continue
		}
		if data := encodeTick(mine); data != nil {
			c.Send(data)
		}
	}
}

// SendRoster pushes the instrument directory to one client.
func (m *Manager) SendRoster(c *Client) {
	data, err := json.Marshal(rosterFrame{Type: FrameRoster, Instruments: m.roster})
	if err != nil {
		return
	}
	c.Send(data)
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CloseAll disconnects every client, used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.clients = make(map[uint64]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

func encodeTick(stocks []engine.Stock) []byte {
	data, err := json.Marshal(tickFrame{Type: FrameTick, Stocks: stocks})
	if err != nil {
		return nil
	}
	return data
}
