package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// handleStateStream upgrades to a websocket and registers the connection
// for pushes via Broadcast; the teacher's voiceWSHandler shape (upgrade,
// defer unregister+close, block until ctx is done) is reused here in
// place of the voice-PCM loop.
func (s *Server) handleStateStream(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Warn("upgrade websocket failed", "error", err)
		return
	}

	ch := make(chan []byte, 8)
	s.streamMu.Lock()
	s.streams[conn] = ch
	s.streamMu.Unlock()

	defer func() {
		s.streamMu.Lock()
		delete(s.streams, conn)
		s.streamMu.Unlock()
		_ = conn.Close()
	}()

	ctx := req.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// Broadcast pushes body to every connected /ws/state client; slow
// subscribers are dropped rather than allowed to block the publisher.
func (s *Server) Broadcast(body []byte) {
	s.streamMu.RLock()
	defer s.streamMu.RUnlock()
	for conn, ch := range s.streams {
		select {
		case ch <- body:
		default:
			s.logger.Warn("dropping slow state-stream subscriber", "remote", conn.RemoteAddr())
		}
	}
}
