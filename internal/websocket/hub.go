package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"portal/internal/model"
)

// Hub maintains the set of connected sessions and fans opportunity changes
// out to them.
type Hub struct {
	clients    map[*Client]bool
	events     chan model.OpportunityChanged
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		events:     make(chan model.OpportunityChanged, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the dispatch loop; it returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("websocket: session for %s connected", client.actor.ID)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
				log.Printf("websocket: session for %s disconnected", client.actor.ID)
			}
			h.mu.Unlock()
		case evt := <-h.events:
			h.dispatch(evt)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) dispatch(evt model.OpportunityChanged) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.events <- evt:
		default:
			// a session that is this far behind re-renders on its next message anyway
			log.Printf("websocket: dropping %s event for slow session %s", evt.OpportunityID, client.actor.ID)
		}
	}
}

// PublishOpportunityChanged never blocks the caller's mutation for long; when
// the queue is full the event is dropped and logged.
func (h *Hub) PublishOpportunityChanged(evt model.OpportunityChanged) {
	if evt.Type == "" {
		evt.Type = model.EventOpportunityChanged
	}
	select {
	case h.events <- evt:
	default:
		payload, _ := json.Marshal(evt)
		log.Printf("websocket: event queue full, dropped %s", payload)
	}
}

// Len is the number of registered sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Stop() {
	close(h.done)
}
