package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 16
	streamWriteWait  = 10 * time.Second
)

// LookupEvent is the websocket payload sent for every resolved check.
type LookupEvent struct {
	Type           string    `json:"type"`
	Domain         string    `json:"domain"`
	IsPhishing     bool      `json:"is_phishing"`
	Message        string    `json:"message"`
	Outcome        string    `json:"outcome"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// subscriber owns one websocket. Only its pump goroutine writes to conn.
type subscriber struct {
	conn   *websocket.Conn
	events chan LookupEvent
}

// LookupNotifier fans lookup events out to websocket subscribers. Broadcast
// never waits on a socket: a subscriber whose queue is full is disconnected.
type LookupNotifier struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
	last *LookupEvent
}

// NewLookupNotifier constructs a notifier with no subscribers.
func NewLookupNotifier() *LookupNotifier {
	return &LookupNotifier{subs: make(map[*subscriber]struct{})}
}

// Register starts delivering events to conn, beginning with the latest one.
func (n *LookupNotifier) Register(conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn, events: make(chan LookupEvent, subscriberBuffer)}

	n.mu.Lock()
	n.subs[sub] = struct{}{}
	if n.last != nil {
		sub.events <- *n.last
	}
	n.mu.Unlock()

	go n.pump(sub)
	return sub
}

// Unregister stops delivery and closes the socket. Safe to call twice.
func (n *LookupNotifier) Unregister(sub *subscriber) {
	if sub == nil {
		return
	}
	n.mu.Lock()
	n.dropLocked(sub)
	n.mu.Unlock()
	_ = sub.conn.Close()
}

// Broadcast queues event for every subscriber without blocking.
func (n *LookupNotifier) Broadcast(event LookupEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var slow []*subscriber
	n.mu.Lock()
	snapshot := event
	n.last = &snapshot
	for sub := range n.subs {
		select {
		case sub.events <- event:
		default:
			n.dropLocked(sub)
			slow = append(slow, sub)
		}
	}
	n.mu.Unlock()

	for _, sub := range slow {
		_ = sub.conn.Close()
	}
}

// Subscribers returns the number of connected clients.
func (n *LookupNotifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func (n *LookupNotifier) pump(sub *subscriber) {
	for event := range sub.events {
		sub.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := sub.conn.WriteJSON(event); err != nil {
			n.Unregister(sub)
			return
		}
	}
}

// dropLocked removes sub and closes its queue; n.mu must be held.
func (n *LookupNotifier) dropLocked(sub *subscriber) {
	if _, ok := n.subs[sub]; !ok {
		return
	}
	delete(n.subs, sub)
	close(sub.events)
}
