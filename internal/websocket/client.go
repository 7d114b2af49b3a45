package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Balance pushes are tiny JSON frames and subscribers never send anything
// meaningful back, so the connection runs with a small read limit and a
// shallow send buffer.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256
	sendBuffer     = 16
)

// Client is one open subscription to a wallet owner's balance stream.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and pins the connection to the given owner key
// until either pump fails. The caller has already authenticated the
// subscriber against the owner.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, ownerKey string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}
	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	hub.Register(ownerKey, client)
	go client.writePump(hub, ownerKey)
	client.readPump(hub, ownerKey)
}

// readPump drains and discards inbound frames; its only job is keeping the
// pong handler fed so a silent peer gets disconnected.
func (c *Client) readPump(hub *Hub, ownerKey string) {
	defer func() {
		hub.Unregister(ownerKey, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump forwards queued wallet updates and pings the peer between them.
func (c *Client) writePump(hub *Hub, ownerKey string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		hub.Unregister(ownerKey, c)
		_ = c.conn.Close()
	}()
	for {
		select {
		case update, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, update); err != nil {
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
