package sim

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Broadcaster fans out simulation snapshots to connected operator
// dashboards over a single shared room — ported from dispatch.Hub
// (internal/dispatch/hub.go), which kept one room per ride; a simulation
// run has exactly one room, the run itself.
type Broadcaster struct {
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		conns:      make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (b *Broadcaster) Run() {
	for {
		select {
		case conn := <-b.register:
			b.mu.Lock()
			b.conns[conn] = struct{}{}
			b.mu.Unlock()
		case conn := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.conns[conn]; ok {
				delete(b.conns, conn)
				conn.Close()
			}
			b.mu.Unlock()
		}
	}
}

// Serve upgrades an HTTP request to a websocket connection subscribed to
// every Publish call until the client disconnects.
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("sim: ws upgrade failed: %v", err)
		return
	}
	b.register <- conn

	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				b.unregister <- conn
				return
			}
		}
	}()
}

// Publish sends payload as JSON to every connected dashboard, dropping any
// connection that fails to write.
func (b *Broadcaster) Publish(payload any) {
	b.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(payload); err != nil {
			b.unregister <- c
		}
	}
}
