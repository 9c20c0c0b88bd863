package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"escrowd/core/events"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsSubscriberBuf = 64
)

type eventPayload struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Broadcaster fans ledger events out to websocket subscribers. Slow
// subscribers are dropped rather than allowed to block the engine; the event
// stream is a convenience feed, the ledger remains the source of truth.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan []byte]struct{})}
}

// Emit implements the events.Emitter interface.
func (b *Broadcaster) Emit(evt *events.Event) {
	if b == nil || evt == nil {
		return
	}
	data, err := json.Marshal(eventPayload{Type: evt.Type, Attributes: evt.Attributes})
	if err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- data:
		default:
			delete(b.subscribers, ch)
			close(ch)
		}
	}
}

func (b *Broadcaster) subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, wsSubscriberBuf)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.broadcaster == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(r.Context(), conn); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn) error {
	updates, cancel := s.broadcaster.subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-updates:
			if !ok {
				return nil
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancelWrite()
			if err != nil {
				return err
			}
		}
	}
}
