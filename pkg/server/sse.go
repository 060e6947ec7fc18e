// Package server - Server-Sent Events for real-time analysis progress.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// SSEBroker manages Server-Sent Events connections.
type SSEBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan SSEEvent]struct{}
}

// SSEEvent represents an event to send to clients.
type SSEEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	ID    string      `json:"id,omitempty"`
}

// NewSSEBroker creates a new SSE broker.
func NewSSEBroker() *SSEBroker {
	return &SSEBroker{
		subscribers: make(map[string]map[chan SSEEvent]struct{}),
	}
}

// Subscribe creates a subscription for a job.
func (b *SSEBroker) Subscribe(jobID string) chan SSEEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan SSEEvent, 10)

	if b.subscribers[jobID] == nil {
		b.subscribers[jobID] = make(map[chan SSEEvent]struct{})
	}
	b.subscribers[jobID][ch] = struct{}{}

	return ch
}

// Unsubscribe removes a subscription.
func (b *SSEBroker) Unsubscribe(jobID string, ch chan SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[jobID]; ok {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(b.subscribers, jobID)
		}
	}
}

// Publish sends an event to all subscribers of a job.
func (b *SSEBroker) Publish(jobID string, event SSEEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if subs, ok := b.subscribers[jobID]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
				// Channel full, skip
			}
		}
	}
}

// PublishProgress sends a progress update.
func (b *SSEBroker) PublishProgress(jobID string, progress interface{}) {
	b.Publish(jobID, SSEEvent{
		Event: "progress",
		Data:  progress,
		ID:    fmt.Sprintf("%d", time.Now().UnixNano()),
	})
}

// PublishComplete sends a completion event.
func (b *SSEBroker) PublishComplete(jobID string, result interface{}) {
	b.Publish(jobID, SSEEvent{
		Event: "complete",
		Data:  result,
		ID:    fmt.Sprintf("%d", time.Now().UnixNano()),
	})
}

// PublishError sends an error event.
func (b *SSEBroker) PublishError(jobID string, err error) {
	b.Publish(jobID, SSEEvent{
		Event: "error",
		Data:  map[string]string{"error": err.Error()},
		ID:    fmt.Sprintf("%d", time.Now().UnixNano()),
	})
}

// SSEHandler creates an HTTP handler streaming a job's events.
func (b *SSEBroker) SSEHandler(jobID string, initial interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		ch := b.Subscribe(jobID)
		defer b.Unsubscribe(jobID, ch)

		if initial != nil {
			writeSSEEvent(w, SSEEvent{Event: "init", Data: initial})
			flusher.Flush()
		}

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				writeSSEEvent(w, event)
				flusher.Flush()

				if event.Event == "complete" || event.Event == "error" {
					return
				}
			}
		}
	}
}

// writeSSEEvent writes an event in SSE wire format.
func writeSSEEvent(w http.ResponseWriter, event SSEEvent) {
	if event.ID != "" {
		fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	fmt.Fprintf(w, "event: %s\n", event.Event)

	data, _ := json.Marshal(event.Data)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
