package api

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	clientBuffer = 16
	writeWait    = 2 * time.Second
)

// StreamHandler upgrades to a websocket and pushes every event as JSON.
// Slow clients lose events instead of holding up the game.
func (s *Server) StreamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		events := make(chan Event, clientBuffer)
		s.mu.Lock()
		events <- Event{Type: "frame", Snapshot: s.snap}
		s.clients[events] = struct{}{}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.clients, events)
			s.mu.Unlock()
		}()

		// 读协程只为了发现断开
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case <-c.Request.Context().Done():
				return
			case ev := <-events:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(ev); err != nil {
					log.WithError(err).Debug("websocket write failed")
					return
				}
			}
		}
	}
}

func (s *Server) broadcast(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}
