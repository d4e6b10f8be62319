package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// Handler upgrades requests from the allowed origins into hub subscribers.
// Same-host requests are always accepted.
func Handler(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			hub.logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		c := &Client{
			hub:    hub,
			conn:   conn,
			send:   make(chan Message, sendBufferSize),
			remote: r.RemoteAddr,
		}
		c.serve(r.Context())
	}
}
