// Package alerts implements threshold-based alert emission (spec C12):
// AlertRecord persistence plus an internal SSE push channel for
// operator dashboards. Stream is a direct generalization of the
// teacher's realtime.Broker (register/unregister/broadcast over
// channels, drop-on-full-buffer delivery) — same shape, renamed
// symbols, no domain logic change.
package alerts

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
)

// Stream handles Server-Sent Events clients and fans out alert events
// to connected operator dashboards.
type Stream struct {
	clients    map[chan []byte]bool
	register   chan chan []byte
	unregister chan chan []byte
	broadcast  chan []byte
	mu         sync.RWMutex
}

func NewStream() *Stream {
	return &Stream{
		clients:    make(map[chan []byte]bool),
		register:   make(chan chan []byte),
		unregister: make(chan chan []byte),
		broadcast:  make(chan []byte, 1000),
	}
}

// Run drives the stream's event loop; call it in its own goroutine.
func (s *Stream) Run() {
	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			s.mu.Unlock()
			log.Printf("alert stream client connected, total=%d", len(s.clients))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client)
				log.Printf("alert stream client disconnected, total=%d", len(s.clients))
			}
			s.mu.Unlock()

		case msg := <-s.broadcast:
			s.mu.RLock()
			for client := range s.clients {
				select {
				case client <- msg:
				default:
				}
			}
			s.mu.RUnlock()
		}
	}
}

// ServeHTTP exposes the stream as an SSE endpoint.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	clientChan := make(chan []byte, 10)
	s.register <- clientChan

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			s.unregister <- clientChan
			return
		case msg := <-clientChan:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			w.(http.Flusher).Flush()
		}
	}
}

// Broadcast pushes one event to all connected dashboard clients.
func (s *Stream) Broadcast(event string, payload any) {
	data := map[string]any{"event": event, "payload": payload}
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("alert stream: marshal failed: %v", err)
		return
	}
	select {
	case s.broadcast <- b:
	default:
	}
}
