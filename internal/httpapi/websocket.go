package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"journeyagent/internal/runctl"
)

// upgrader allows any origin, matching None9527-NGOClaw's gateway — this
// surface is meant for an operator UI on the same host/LAN, not a public API.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// operatorMessage is an operator-to-agent frame: tts_done{id} or
// tts_toggle{enabled}, dispatched by Type the way the teacher's
// WSMessage.Type switch dispatches ping/chat/etc.
type operatorMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
}

const wsWriteWait = 10 * time.Second

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}
	defer conn.Close()

	events, unsubscribe := s.ctl.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go s.wsReadLoop(conn, done)
	s.wsWriteLoop(conn, events, done)
}

// wsReadLoop dispatches incoming tts_done/tts_toggle frames until the
// connection closes.
func (s *Server) wsReadLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg operatorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "tts_done":
			s.ctl.Ack(msg.ID)
		case "tts_toggle":
			s.ctl.ToggleTTS(msg.Enabled)
		}
	}
}

// wsWriteLoop forwards every Hub event to the client until either side
// closes the connection.
func (s *Server) wsWriteLoop(conn *websocket.Conn, events <-chan runctl.Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
