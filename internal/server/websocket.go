package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/twill/internal/events"
	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

// Client is one websocket connection streaming engine events. A fresh
// client receives every event; a subscribe message narrows the stream
// to particular runs, steps, or event types
type Client struct {
	server   *Server
	conn     *websocket.Conn
	consumer topic.Consumer[*api.Event]
	filter   events.EventFilter
	sub      api.ClientSubscription
}

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", log.Error(err))
		return
	}

	client := &Client{
		server:   s,
		conn:     conn,
		consumer: s.hub.NewConsumer(),
		filter:   BuildFilter(&api.ClientSubscription{}),
	}
	s.registerWebSocket(client)
	go client.run()
}

// Close terminates the connection, unblocking the client's run loop
func (c *Client) Close() {
	_ = c.conn.Close()
}

func (c *Client) run() {
	defer func() {
		c.server.unregisterWebSocket(c)
		c.consumer.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case message, ok := <-incoming:
			if !ok {
				return
			}
			c.handleSubscribe(message)

		case event, ok := <-c.consumer.Receive():
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.sendEvent(event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			close(incoming)
			return
		}
		incoming <- message
	}
}

func (c *Client) handleSubscribe(message []byte) {
	var sub api.SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return
	}

	if sub.Type != "subscribe" {
		return
	}

	c.sub = sub.Data
	c.filter = BuildFilter(&sub.Data)
	c.sendSubscribed()
}

func (c *Client) sendSubscribed() {
	msg := api.SubscribedResult{
		Type: "subscribed",
		Data: c.sub,
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		slog.Error("WebSocket write failed",
			slog.String("context", "subscribed"),
			log.Error(err))
	}
}

func (c *Client) sendEvent(ev *api.Event) bool {
	if !c.filter(ev) {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ev); err != nil {
		slog.Debug("WebSocket write failed", log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

// BuildFilter compiles a client subscription into the filter the send
// path applies to each event. Engine-level events carry no run ID and
// run-level events no step ID, so they pass run and step constraints
// instead of being dropped. A subscription with no constraints passes
// everything
func BuildFilter(sub *api.ClientSubscription) events.EventFilter {
	var filters []events.EventFilter
	if sub.RunID != "" {
		filters = append(filters, events.OrFilters(
			events.FilterRun(""),
			events.FilterRun(sub.RunID),
		))
	}
	if len(sub.StepIDs) > 0 {
		steps := make([]events.EventFilter, len(sub.StepIDs)+1)
		steps[0] = events.FilterStep("")
		for i, id := range sub.StepIDs {
			steps[i+1] = events.FilterStep(id)
		}
		filters = append(filters, events.OrFilters(steps...))
	}
	if len(sub.EventTypes) > 0 {
		filters = append(filters, events.FilterEvents(sub.EventTypes...))
	}
	return events.AndFilters(filters...)
}
