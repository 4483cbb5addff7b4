package http

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteTimeout = 5 * time.Second
	commandFetch       = "fetch"
)

// Stream upgrades to a WebSocket that receives every state snapshot as
// JSON. A {"type":"fetch"} message from the client triggers a fetch.
func (h *Handler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	updates, unsubscribe := h.ctrl.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var cmd streamCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket read failed", "error", err)
				}
				return
			}
			if cmd.Type == commandFetch {
				h.ctrl.Trigger()
			}
		}
	}()

	for {
		select {
		case <-closed:
			return nil
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(streamWriteTimeout))
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(toStateResponse(snap)); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return nil
			}
		}
	}
}
