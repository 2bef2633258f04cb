package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection, queues initial as its first message and
// pumps until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, initial []byte, sendBuffer int) {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	client := &Client{Hub: hub, Conn: c, Id: uuid.NewString(), Send: make(chan []byte, sendBuffer)}
	if initial != nil {
		client.Send <- initial
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
