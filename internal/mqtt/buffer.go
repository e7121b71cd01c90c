package mqtt

import (
	"log/slog"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// message is a formatted publish held until the broker is reachable.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the newest messages, up to a fixed limit, in publish order.
// The caller synchronizes.
type outbox[T any] struct {
	items   []T
	start   int
	size    int
	dropped int
	warned  bool
}

func newOutbox[T any](limit int) *outbox[T] {
	if limit < 0 {
		limit = 0
	}
	return &outbox[T]{items: make([]T, limit)}
}

// add queues item. When full the oldest item is discarded; with no room at
// all the item itself is.
func (o *outbox[T]) add(item T) {
	limit := len(o.items)
	if limit == 0 {
		o.dropped++
		return
	}
	if o.size < limit {
		o.items[(o.start+o.size)%limit] = item
		o.size++
		return
	}
	if !o.warned {
		slog.Warn("mqtt: outbox full, discarding oldest messages", "limit", limit)
		o.warned = true
	}
	o.items[o.start] = item
	o.start = (o.start + 1) % limit
	o.dropped++
}

// take empties the outbox, oldest first. Returns nil when empty.
func (o *outbox[T]) take() []T {
	if o.size == 0 {
		return nil
	}
	out := make([]T, 0, o.size)
	for i := 0; i < o.size; i++ {
		out = append(out, o.items[(o.start+i)%len(o.items)])
	}
	clear(o.items)
	o.start, o.size, o.warned = 0, 0, false
	return out
}

func (o *outbox[T]) pending() int { return o.size }

// gate decides, under one lock, whether a message goes to the broker now or
// waits in the outbox. It opens only once the outbox has been replayed, so
// nothing published during a replay can overtake older messages.
type gate struct {
	mu   sync.Mutex
	box  *outbox[message]
	open bool
}

func newGate(limit int) *gate {
	return &gate{box: newOutbox[message](limit)}
}

// submit hands msg to send while the gate is open and reports false
// otherwise, in which case msg was queued. send must only enqueue.
func (g *gate) submit(msg message, live func() bool, send func(message) paho.Token) (paho.Token, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open || !live() {
		g.box.add(msg)
		return nil, false
	}
	return send(msg), true
}

// replay sends queued messages oldest first, repeating until the outbox is
// empty, then opens the gate. Returns how many were replayed.
func (g *gate) replay(send func(message)) int {
	n := 0
	for {
		g.mu.Lock()
		batch := g.box.take()
		if len(batch) == 0 {
			g.open = true
			g.mu.Unlock()
			return n
		}
		g.mu.Unlock()
		for _, msg := range batch {
			send(msg)
		}
		n += len(batch)
	}
}

func (g *gate) shut() {
	g.mu.Lock()
	g.open = false
	g.mu.Unlock()
}

func (g *gate) counts() (pending, dropped int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.box.pending(), g.box.dropped
}
