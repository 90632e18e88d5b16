package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"portal/internal/middleware"
	"portal/internal/model"
	"portal/internal/presenter"
	"portal/internal/service"
	"portal/internal/storeclient"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 8 << 10
)

// Dependencies are the services a connected session drives.
type Dependencies struct {
	Sessions       middleware.SessionResolver
	Opportunities  presenter.Opportunities
	Drafts         presenter.Drafts
	References     service.ReferenceService
	AllowedOrigins []string
}

// Client is a single connected browser tab.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	actor   model.Profile
	send    chan []byte
	events  chan model.OpportunityChanged
	inbound chan Inbound
	cancel  context.CancelFunc
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		close(c.inbound)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.cancel()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket: read error for %s: %v", c.actor.ID, err)
			}
			return
		}
		c.inbound <- msg
	}
}

// emit runs on the session goroutine, the only writer of send.
func (c *Client) emit(out Outbound) {
	payload, err := json.Marshal(out)
	if err != nil {
		log.Printf("websocket: failed to encode %s message: %v", out.Type, err)
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("websocket: send buffer full for %s, dropping %s", c.actor.ID, out.Type)
	}
}

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
}

// ServeWs authenticates the request like any API call and hands the
// connection to a new presenter session.
func ServeWs(hub *Hub, deps Dependencies, c *gin.Context) {
	actor, token, err := middleware.Authenticate(c, deps.Sessions)
	if err != nil {
		log.Println("WebSocket connection rejected:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	upgrader := newUpgrader(deps.AllowedOrigins)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}

	ctx, cancel := context.WithCancel(storeclient.WithToken(context.Background(), token))
	client := &Client{
		hub:     hub,
		conn:    conn,
		actor:   actor,
		send:    make(chan []byte, 256),
		events:  make(chan model.OpportunityChanged, 16),
		inbound: make(chan Inbound, 16),
		cancel:  cancel,
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		cancel()
		_ = conn.Close()
		return
	}

	session := NewSession(ctx, presenter.New(deps.Opportunities, deps.Drafts, actor), deps.References, client.emit)
	go func() {
		session.run(client.inbound, client.events)
		cancel()
		close(client.send)
	}()
	go client.writePump()
	go client.readPump()
}
