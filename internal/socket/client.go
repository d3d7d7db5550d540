package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/slotter-org/chat-backend/internal/logger"
)

// Message is what a connected client receives: the channel it arrived on and the raw
// JSON event.
type Message struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

const (
	OutboundChanBuffer = 256

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4 << 10
)

// Client is one websocket connection. The hub only ever touches Outbound.
type Client struct {
	ID       uuid.UUID
	UserID   uint
	Conn     *websocket.Conn
	Hub      *Hub
	Log      *logger.Logger
	Outbound chan Message

	cancelFn  context.CancelFunc
	closeOnce sync.Once
}

// NewClient takes the cancel func of the context both pumps run under so either
// pump can stop the other.
func NewClient(conn *websocket.Conn, hub *Hub, userID uint, cancel context.CancelFunc, log *logger.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:       id,
		UserID:   userID,
		Conn:     conn,
		Hub:      hub,
		Log:      log.With("client", id.String(), "userID", userID),
		Outbound: make(chan Message, OutboundChanBuffer),
		cancelFn: cancel,
	}
}

func (c *Client) ReadLoop(ctx context.Context)  { c.readLoop(ctx) }
func (c *Client) WriteLoop(ctx context.Context) { c.writeLoop(ctx) }

// readLoop keeps the read deadline moving on pongs. The stream is server-push only,
// so inbound frames are read and dropped.
func (c *Client) readLoop(ctx context.Context) {
	defer c.close()

	c.Conn.SetReadLimit(maxInboundSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Log.Debug("websocket read error, closing client", "error", err)
			}
			return
		}
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg, ok := <-c.Outbound:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				c.Log.Warn("failed writing JSON", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Log.Debug("ping error, shutting down", "error", err)
				return
			}
		}
	}
}

// close is reached from both pumps. The client leaves the hub before Outbound is
// closed, so the hub never sends on a closed channel.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.Log.Debug("closing client connection")
		if c.cancelFn != nil {
			c.cancelFn()
		}
		if c.Hub != nil {
			c.Hub.Unsubscribe(c)
		}
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
		close(c.Outbound)
	})
}
