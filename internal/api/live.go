package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/keybeat-app/keybeat/internal/infra/metrics"
)

// ─── Live Stream (/v1/live) ─────────────────────────────────────────────────
// The hub fans debounced counter updates and one-shot notifications out to
// connected subscribers as NDJSON lines. Slow subscribers drop messages
// rather than block the pipeline.

// liveEvent is one line on the live stream.
type liveEvent struct {
	Type         string               `json:"type"` // "stats" | "notification"
	Stats        *domain.LiveUpdate   `json:"stats,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
}

// Hub tracks live stream subscribers. It implements domain.Publisher, so
// the tracker and the notifier talk to it without knowing about HTTP.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan liveEvent
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan liveEvent)}
}

// PublishUpdate broadcasts a debounced counter update.
func (h *Hub) PublishUpdate(u domain.LiveUpdate) {
	h.broadcast(liveEvent{Type: "stats", Stats: &u})
}

// PublishNotification broadcasts a one-shot notification.
func (h *Hub) PublishNotification(n domain.Notification) {
	h.broadcast(liveEvent{Type: "notification", Notification: &n})
}

func (h *Hub) broadcast(ev liveEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			metrics.LiveDropped.Inc()
		}
	}
}

func (h *Hub) subscribe() (string, chan liveEvent) {
	id := uuid.New().String()
	ch := make(chan liveEvent, 32)
	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()
	metrics.LiveSubscribers.Inc()
	return id, ch
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
	metrics.LiveSubscribers.Dec()
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// handleLive streams hub events as NDJSON until the client disconnects.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id, ch := s.hub.subscribe()
	defer s.hub.unsubscribe(id)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)

	// Opening line so a fresh subscriber has current numbers immediately.
	first := s.store.LiveUpdateAt(time.Now())
	enc.Encode(liveEvent{Type: "stats", Stats: &first})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			enc.Encode(ev)
			flusher.Flush()
		}
	}
}
