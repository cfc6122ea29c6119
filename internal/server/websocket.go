package server

import (
	"net/http"
	"strings"

	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades to WebSocket and streams entries to the client
// as JSON. ?level=error,warn restricts the stream to those levels.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	levels := parseLevels(c.Query("level"))

	entries := s.hub.Subscribe()
	defer s.hub.Unsubscribe(entries)

	// Read pump: detect client disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Write pump.
	for {
		select {
		case <-gone:
			return
		case entry, ok := <-entries:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"))
				return
			}
			if !levels.match(entry) {
				continue
			}
			if err := conn.WriteJSON(entry); err != nil {
				s.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

type levelSet map[string]bool

func parseLevels(q string) levelSet {
	if q == "" {
		return nil
	}
	set := levelSet{}
	for _, l := range strings.Split(q, ",") {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			set[l] = true
		}
	}
	return set
}

func (s levelSet) match(e model.Entry) bool {
	if len(s) == 0 {
		return true
	}
	level, ok := e.Record.Level()
	return ok && s[level]
}
