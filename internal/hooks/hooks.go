// Package hooks provides an event bus for bot lifecycle events.
package hooks

import (
	"context"
	"sync"

	"github.com/soyeahso/modseek/internal/logging"
)

// Event names emitted by the bot core.
const (
	EventSearch         = "search"
	EventSearchPaged    = "search_paged"
	EventDetailViewed   = "detail_viewed"
	EventVersionsListed = "versions_listed"
	EventVersionsPaged  = "versions_paged"
	EventDownload       = "download"
	EventSessionExpired = "session_expired"
)

// AllEvents lists all known event names.
var AllEvents = []string{
	EventSearch,
	EventSearchPaged,
	EventDetailViewed,
	EventVersionsListed,
	EventVersionsPaged,
	EventDownload,
	EventSessionExpired,
}

// Payload carries event data to handlers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler handles one event. Returning an error logs the failure but does
// not stop other handlers.
type Handler func(ctx context.Context, p Payload) error

// anyEvent is the internal bucket for handlers subscribed to every event.
const anyEvent = "*"

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event. The name identifies the
// handler for logging and removal.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// OnAny registers a handler that receives every emitted event.
func (m *Manager) OnAny(name string, handler Handler) {
	m.On(anyEvent, name, handler)
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handlers := m.handlers[event]
	filtered := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	m.handlers[event] = filtered
}

// Emit dispatches an event to its handlers and the any-event handlers, in
// registration order. Handler errors are logged and do not stop dispatch.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	m.mu.RLock()
	handlers := make([]namedHandler, 0, len(m.handlers[event])+len(m.handlers[anyEvent]))
	handlers = append(handlers, m.handlers[event]...)
	handlers = append(handlers, m.handlers[anyEvent]...)
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	payload := Payload{Event: event, Data: data}
	for _, h := range handlers {
		if err := h.handler(ctx, payload); err != nil {
			m.log.Warn().
				Err(err).
				Str("event", event).
				Str("handler", h.name).
				Msg("hook handler error")
		}
	}
}

// Count returns the number of handlers registered for an event, not
// counting any-event subscribers.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}
