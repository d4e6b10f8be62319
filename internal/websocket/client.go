package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one live-update subscriber. Subscribers only listen; any data
// frame they send closes the connection.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan Message
	remote string
}

// serve registers the client, greets it with the subscriber count and
// streams hub messages until the peer goes away.
func (c *Client) serve(ctx context.Context) {
	n := c.hub.Register(c)
	defer c.hub.Unregister(c)

	start := time.Now()
	ctx = c.conn.CloseRead(ctx)

	err := c.write(ctx, NewMessage("connection", "opened", "", map[string]any{"clients": n}))
	if err == nil {
		err = c.writeLoop(ctx)
	}
	c.hub.logger.Debug("client disconnected",
		"remote", c.remote,
		"duration", time.Since(start).Round(time.Millisecond),
		"reason", err,
	)
}

func (c *Client) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return c.conn.Close(ws.StatusGoingAway, "hub closed")
			}
			if err := c.write(ctx, msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) write(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}
