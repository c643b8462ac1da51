package server

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"glade/internal/protocol"
)

const (
	sendBuffer     = 64
	maxMessageSize = 64 * 1024
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
)

// session is one websocket client. The read pump feeds decoded envelopes to
// the server, the write pump owns the connection for writes and pings. send
// is closed by the server side only, always under Server.mu.
type session struct {
	id     uint64
	server *Server
	conn   *websocket.Conn
	send   chan []byte

	// guarded by Server.mu
	name       string
	wantsPilot bool
}

func newSession(s *Server, conn *websocket.Conn) *session {
	return &session{
		id:     s.nextID.Add(1),
		server: s,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

// queueLocked hands data to the write pump without blocking. Caller holds
// Server.mu, which is what keeps the send from racing a close.
func (sess *session) queueLocked(data []byte) bool {
	select {
	case sess.send <- data:
		return true
	default:
		return false
	}
}

// sendMessage encodes one envelope for this session alone.
func (sess *session) sendMessage(t protocol.MessageType, payload interface{}) {
	srv := sess.server
	env, err := protocol.NewEnvelope(t, srv.seq.Add(1), payload)
	if err != nil {
		srv.logger.Printf("send %s to session %d: %v", t, sess.id, err)
		return
	}
	data, err := protocol.Encode(env)
	if err != nil {
		srv.logger.Printf("send %s to session %d: %v", t, sess.id, err)
		return
	}
	srv.mu.Lock()
	if _, ok := srv.sessions[sess]; ok && !sess.queueLocked(data) {
		srv.dropLocked(sess, "send buffer full")
	}
	srv.mu.Unlock()
}

func (sess *session) sendError(msg string) {
	sess.sendMessage(protocol.MessageError, protocol.ErrorPayload{Message: msg})
}

func (sess *session) readPump() {
	defer func() {
		sess.server.remove(sess, "connection closed")
		sess.conn.Close()
	}()
	sess.conn.SetReadLimit(maxMessageSize)
	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.server.logger.Printf("session %d read: %v", sess.id, err)
			}
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			sess.sendError(fmt.Sprintf("bad envelope: %v", err))
			continue
		}
		sess.server.handleMessage(sess, env)
	}
}

func (sess *session) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		sess.conn.Close()
	}()
	writeWait := sess.server.cfg.Server.WriteTimeout.Duration
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	for {
		select {
		case data, ok := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sess.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
