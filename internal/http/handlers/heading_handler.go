// README: WebSocket heading stream; clients push orientation events and receive finder views.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	qlog "qibla/internal/log"
	"qibla/internal/modules/finder"
	"qibla/internal/modules/heading"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Stream upgrades to a WebSocket bound to one finder session. Closing the
// socket leaves the session running.
func (h *SessionHandler) Stream(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		qlog.Warn("websocket upgrade failed", "session", f.ID(), "error", err)
		return
	}

	send := make(chan finder.View, sendBuffer)
	done := make(chan struct{})
	unsubscribe := f.OnChange(func(v finder.View) {
		select {
		case send <- v:
		case <-done:
		default:
			// slow reader; it will catch up on the next view
		}
	})
	send <- f.View()

	go writePump(conn, send, done)
	readPump(conn, f)

	unsubscribe()
	close(done)
}

func readPump(conn *websocket.Conn, f *finder.Finder) {
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				qlog.Debug("heading stream closed", "session", f.ID(), "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var ev heading.OrientationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			qlog.Debug("dropping malformed orientation event", "session", f.ID(), "error", err)
			continue
		}
		if err := f.Publish(ev); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, send <-chan finder.View, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case v := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(v); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
