package channel

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New("127.0.0.1:0", zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

// ensureAsync runs EnsureConnected in the background and returns the bound
// address once the listener is up, plus a channel carrying the result.
func ensureAsync(t *testing.T, s *Server, timeout time.Duration) (string, chan bool) {
	t.Helper()
	result := make(chan bool, 1)
	go func() {
		ok, err := s.EnsureConnected(timeout)
		if err != nil {
			t.Errorf("ensure connected: %v", err)
		}
		result <- ok
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != Listening {
		if time.Now().After(deadline) {
			t.Fatal("listener never came up")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s.Addr(), result
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEnsureConnectedTimesOut(t *testing.T) {
	s := newTestServer(t)

	ok, err := s.EnsureConnected(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("ensure connected: %v", err)
	}
	if ok {
		t.Error("expected no client within timeout")
	}
	if s.State() != Listening {
		t.Errorf("state = %s, want listening", s.State())
	}
}

func TestSpectatorConnectAndSend(t *testing.T) {
	s := newTestServer(t)
	addr, result := ensureAsync(t, s, 5*time.Second)

	client := dial(t, addr)

	if ok := <-result; !ok {
		t.Fatal("expected client to be held")
	}
	if s.State() != Connected {
		t.Errorf("state = %s, want connected", s.State())
	}

	if err := s.Send("match-42"); err != nil {
		t.Fatalf("send: %v", err)
	}
	_, payload, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(payload) != "match-42" {
		t.Errorf("payload = %q, want match-42", payload)
	}

	// A held client makes EnsureConnected an immediate yes.
	ok, err := s.EnsureConnected(10 * time.Millisecond)
	if err != nil || !ok {
		t.Errorf("ensure with held client = %v, %v; want true, nil", ok, err)
	}
}

func TestExtraSpectatorDropped(t *testing.T) {
	s := newTestServer(t)
	addr, result := ensureAsync(t, s, 5*time.Second)

	dial(t, addr)
	if ok := <-result; !ok {
		t.Fatal("expected first client to be held")
	}

	extra := dial(t, addr)
	extra.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := extra.ReadMessage(); err == nil {
		t.Error("extra spectator should be disconnected, not served")
	}
	if s.State() != Connected {
		t.Errorf("state = %s, want connected", s.State())
	}
}

func TestSendWithoutClientIsNoop(t *testing.T) {
	s := newTestServer(t)
	if err := s.Send("match-1"); err != nil {
		t.Errorf("send without client = %v, want nil", err)
	}
}

func TestCloseIsTerminalAndIdempotent(t *testing.T) {
	s := newTestServer(t)
	addr, result := ensureAsync(t, s, 5*time.Second)
	client := dial(t, addr)
	<-result

	s.Close()
	s.Close()
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}

	// The held client sees the server-initiated close.
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Error("expected read to fail after server close")
	}

	// Closed is terminal: no rebinding, no client.
	ok, err := s.EnsureConnected(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("ensure after close: %v", err)
	}
	if ok {
		t.Error("closed channel must not reconnect")
	}
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}
}

func TestCloseFromAbsentState(t *testing.T) {
	s := New("127.0.0.1:0", zerolog.Nop())
	s.Close()
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}
}

func TestEnsureConnectedRebindsAfterClientLoss(t *testing.T) {
	s := newTestServer(t)
	addr, result := ensureAsync(t, s, 5*time.Second)
	client := dial(t, addr)
	<-result

	// Client goes away; the failed send drops it.
	client.Close()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := s.Send("x"); err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("send never failed after client close")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s.State() == Connected {
		t.Error("state should not remain connected after a failed send")
	}

	// A fresh listener comes up on a new port and accepts a new spectator.
	oldAddr := addr
	result = make(chan bool, 1)
	go func() {
		ok, err := s.EnsureConnected(5 * time.Second)
		if err != nil {
			t.Errorf("ensure connected: %v", err)
		}
		result <- ok
	}()
	deadline = time.Now().Add(2 * time.Second)
	for s.Addr() == oldAddr || s.State() != Listening {
		if time.Now().After(deadline) {
			t.Fatal("listener never rebound")
		}
		time.Sleep(5 * time.Millisecond)
	}
	dial(t, s.Addr())
	if ok := <-result; !ok {
		t.Fatal("expected a fresh client after rebind")
	}
}
