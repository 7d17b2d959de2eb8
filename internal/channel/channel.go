// Package channel manages the bridge's single-client spectator notification
// channel: one listening endpoint, at most one connected WebSocket client,
// torn down for good once the match is over.
package channel

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State is the channel lifecycle position.
type State int

const (
	Absent State = iota
	Listening
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Listening:
		return "listening"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return "unknown"
}

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // spectator endpoint is unauthenticated by design
	},
}

// Server owns the listening endpoint and its sole client. It is replaced
// wholesale by its owner, never shared between bridges.
type Server struct {
	addr string
	log  zerolog.Logger

	mu      sync.Mutex
	state   State
	ln      net.Listener
	httpSrv *http.Server
	client  *websocket.Conn
	pending chan *websocket.Conn
}

// New creates a Server that will bind addr on first use.
func New(addr string, log zerolog.Logger) *Server {
	return &Server{addr: addr, log: log, state: Absent}
}

// State reports the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the bound listener address, or the configured address before
// the first bind. Useful when binding port 0 in tests.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// EnsureConnected makes sure a spectator client is held, rebinding a fresh
// listener first whenever none is. It blocks up to timeout waiting for one
// inbound connection; a zero timeout waits indefinitely. The boolean reports
// whether a client is now connected; the error reports a failed bind.
// After Close it never reconnects.
func (s *Server) EnsureConnected(timeout time.Duration) (bool, error) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return false, nil
	}
	if s.client != nil {
		s.mu.Unlock()
		return true, nil
	}
	s.teardownLocked()
	if err := s.listenLocked(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	pending := s.pending
	s.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case conn := <-pending:
		s.mu.Lock()
		if s.state == Closed {
			s.mu.Unlock()
			conn.Close()
			return false, nil
		}
		s.client = conn
		s.state = Connected
		s.mu.Unlock()
		s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Spectator connected")
		return true, nil
	case <-expired:
		s.log.Info().Dur("timeout", timeout).Msg("No spectator connected before timeout")
		return false, nil
	}
}

// Send transmits one text payload to the held client. It is a no-op when no
// client is connected. A write failure drops the client so the next
// EnsureConnected rebinds.
func (s *Server) Send(payload string) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil
	}

	client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		s.mu.Lock()
		if s.client == client {
			s.client = nil
			if s.state == Connected {
				s.state = Listening
			}
		}
		s.mu.Unlock()
		client.Close()
		return err
	}
	return nil
}

// Close releases the listener and any client and pins the channel in the
// Closed state. Idempotent, safe from any state.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	if s.client != nil {
		s.client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		s.client.Close()
		s.client = nil
	}
	s.teardownLocked()
	s.state = Closed
	s.log.Info().Msg("Notification channel closed")
}

// listenLocked binds a fresh listener and starts serving upgrades into a new
// pending channel. Callers hold s.mu.
func (s *Server) listenLocked() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.pending = make(chan *websocket.Conn, 1)
	s.httpSrv = &http.Server{Handler: http.HandlerFunc(s.handleUpgrade)}
	go s.httpSrv.Serve(ln)
	s.state = Listening
	s.log.Info().Str("addr", ln.Addr().String()).Msg("Listening for spectator")
	return nil
}

// teardownLocked releases the listener and any connection still waiting in
// the pending channel. The held client and the state are left alone.
func (s *Server) teardownLocked() {
	if s.httpSrv != nil {
		s.httpSrv.Close()
		s.httpSrv = nil
	}
	if s.ln != nil {
		s.ln.Close()
		s.ln = nil
	}
	if s.pending != nil {
		for {
			select {
			case conn := <-s.pending:
				conn.Close()
				continue
			default:
			}
			break
		}
		s.pending = nil
	}
}

// handleUpgrade accepts inbound spectator connections. Exactly one is
// retained per listener generation; the rest are observed, logged, and
// dropped.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("Spectator upgrade failed")
		return
	}

	s.mu.Lock()
	pending := s.pending
	held := s.client != nil || s.state == Closed
	s.mu.Unlock()

	if held || pending == nil {
		s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Extra spectator connection dropped")
		conn.Close()
		return
	}
	select {
	case pending <- conn:
	default:
		s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Extra spectator connection dropped")
		conn.Close()
	}
}
