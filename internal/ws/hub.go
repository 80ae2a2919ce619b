package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types pushed to terminals when another terminal or the kitchen
// changes shared state.
const (
	EventTablesChanged  = "tables.changed"
	EventLinesChanged   = "lines.changed"
	EventKitchenChanged = "kitchen.changed"
	EventOrdersChanged  = "orders.changed"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event. A nil payload yields a bare event.
func NewEvent(eventType string, payload any) (Event, error) {
	ev := Event{Type: eventType}
	if payload == nil {
		return ev, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev.Payload = b
	return ev, nil
}

type ownerEvent struct {
	OwnerID uuid.UUID
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Rooms are keyed by owner ID so every terminal of one account sees the
// same stream.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *ownerEvent
	done       chan struct{}

	mu  sync.RWMutex
	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *ownerEvent, 256),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws").Logger(),
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing
// every client's send channel on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for owner, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, owner)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.ownerID] == nil {
				h.rooms[client.ownerID] = make(map[*Client]bool)
			}
			h.rooms[client.ownerID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.Error().Err(err).Str("type", event.Event.Type).Msg("marshal event")
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.OwnerID] {
				select {
				case client.send <- message:
				default:
					// Send buffer full: drop the slow client.
					h.log.Warn().Str("owner_id", event.OwnerID.String()).Msg("dropping slow websocket client")
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.ownerID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.ownerID)
	}
}

// BroadcastToOwner queues event for every client in the owner's room. It is
// a no-op once the hub has stopped.
func (h *Hub) BroadcastToOwner(ownerID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &ownerEvent{OwnerID: ownerID, Event: event}:
	case <-h.done:
	}
}

// Clients reports how many connections the owner's room holds.
func (h *Hub) Clients(ownerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ownerID])
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
