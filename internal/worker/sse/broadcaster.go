// Package sse streams pipeline lifecycle events to connected dashboards
// over Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// writeTimeout bounds a single client write so a stale connection
// cannot stall a broadcast.
const writeTimeout = 2 * time.Second

type client struct {
	id      int64
	w       http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
}

// Broadcaster fans events out to every connected SSE client. Safe for
// concurrent use.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[int64]*client
	nextID  int64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[int64]*client)}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends data, JSON-encoded, to all connected clients. Writes
// that fail or exceed the write timeout drop the client.
func (b *Broadcaster) Broadcast(data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	frame := fmt.Sprintf("data: %s\n\n", payload)

	b.mu.RLock()
	targets := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.RUnlock()

	for _, c := range targets {
		if !b.write(c, frame) {
			b.drop(c.id)
		}
	}
}

// write delivers one frame with a timeout. Returns false when the
// client should be dropped.
func (b *Broadcaster) write(c *client, frame string) bool {
	result := make(chan bool, 1)
	go func() {
		if _, err := c.w.Write([]byte(frame)); err != nil {
			result <- false
			return
		}
		c.flusher.Flush()
		result <- true
	}()

	select {
	case ok := <-result:
		return ok
	case <-time.After(writeTimeout):
		log.Warn().Int64("clientId", c.id).Msg("SSE write timed out")
		return false
	case <-c.done:
		return true
	}
}

func (b *Broadcaster) add(w http.ResponseWriter) (*client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	b.mu.Lock()
	b.nextID++
	c := &client{
		id:      b.nextID,
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
	b.clients[c.id] = c
	total := len(b.clients)
	b.mu.Unlock()

	log.Debug().Int64("clientId", c.id).Int("totalClients", total).Msg("SSE client connected")
	return c, nil
}

func (b *Broadcaster) drop(id int64) {
	b.mu.Lock()
	c, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
	}
	total := len(b.clients)
	b.mu.Unlock()

	if !ok {
		return
	}
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	log.Debug().Int64("clientId", id).Int("totalClients", total).Msg("SSE client disconnected")
}

// ServeHTTP upgrades the request to an event stream and blocks until
// the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	c, err := b.add(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.drop(c.id)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"clientId\":%d}\n\n", c.id)
	c.flusher.Flush()

	<-r.Context().Done()
}
