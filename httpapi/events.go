package httpapi

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// EventType names a grant lifecycle event broadcast over the websocket.
type EventType string

const (
	EventGrantIssued EventType = "grant_issued"
	EventClaimed     EventType = "claimed"
	EventBought      EventType = "bought"
	EventAuthorized  EventType = "authorized"
	EventTerminated  EventType = "terminated"
)

// Event is one lifecycle notification pushed to websocket subscribers.
type Event struct {
	Type      EventType              `json:"type"`
	AccountID string                 `json:"account_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventBus fans grant lifecycle events out to every connected websocket
// client, mirroring the teacher's api.EventBus register/unregister/
// broadcast loop.
type EventBus struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func newEventBus() *EventBus {
	return &EventBus{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Publish enqueues an event for broadcast. Safe to call whether or not
// run() has been started or any client is connected: the channel buffers
// up to 64 events, and once it is full the new event is dropped rather
// than blocking the caller.
func (eb *EventBus) Publish(e Event) {
	select {
	case eb.broadcast <- e:
	default:
		// Buffer full and no one is draining it (no server.Start() running,
		// e.g. under test) — drop rather than block the caller.
	}
}

func (eb *EventBus) run() {
	for {
		select {
		case c := <-eb.register:
			eb.clients[c] = true

		case c := <-eb.unregister:
			if _, ok := eb.clients[c]; ok {
				delete(eb.clients, c)
				c.Close()
			}

		case event := <-eb.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			for c := range eb.clients {
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					delete(eb.clients, c)
					c.Close()
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	s.eventBus.register <- conn
	defer func() {
		s.eventBus.unregister <- conn
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}
