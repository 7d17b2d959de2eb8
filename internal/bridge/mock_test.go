package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cardroom/tablesync/internal/engine"
	"github.com/cardroom/tablesync/internal/model"
)

type mockMatchRepo struct {
	matches  map[string]*model.Match
	slices   map[string][]model.MatchSlice
	calls    []string
	findErr  error
	sliceErr error
	touchErr error
}

func newMockMatchRepo(ids ...string) *mockMatchRepo {
	m := &mockMatchRepo{
		matches: make(map[string]*model.Match),
		slices:  make(map[string][]model.MatchSlice),
	}
	for _, id := range ids {
		m.matches[id] = &model.Match{ID: id, Status: "started", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	}
	return m
}

func (m *mockMatchRepo) FindByID(_ context.Context, id string) (*model.Match, error) {
	m.calls = append(m.calls, "find")
	if m.findErr != nil {
		return nil, m.findErr
	}
	match, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("find match %s: not found", id)
	}
	return match, nil
}

func (m *mockMatchRepo) CreateSlice(_ context.Context, matchID string, s *model.MatchSlice) error {
	m.calls = append(m.calls, "create_slice")
	if m.sliceErr != nil {
		return m.sliceErr
	}
	s.MatchID = matchID
	s.CreatedAt = time.Now()
	m.slices[matchID] = append(m.slices[matchID], *s)
	return nil
}

func (m *mockMatchRepo) Touch(_ context.Context, matchID string) error {
	m.calls = append(m.calls, "touch")
	if m.touchErr != nil {
		return m.touchErr
	}
	if match, ok := m.matches[matchID]; ok {
		match.UpdatedAt = time.Now()
	}
	return nil
}

func (m *mockMatchRepo) SetFinished(_ context.Context, matchID string) error {
	m.calls = append(m.calls, "set_finished")
	if match, ok := m.matches[matchID]; ok {
		match.Status = "finished"
	}
	return nil
}

type mockCache struct {
	latest map[string]json.RawMessage
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{latest: make(map[string]json.RawMessage)}
}

func (m *mockCache) SetLatestSlice(_ context.Context, matchID string, slice json.RawMessage) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.latest[matchID] = slice
	return nil
}

func (m *mockCache) GetLatestSlice(_ context.Context, matchID string) (json.RawMessage, error) {
	return m.latest[matchID], nil
}

func (m *mockCache) DeleteMatchData(_ context.Context, matchID string) error {
	delete(m.latest, matchID)
	return nil
}

// mockNotifier records channel operations. Once closed it refuses to
// reconnect, matching channel.Server's terminal Closed state.
type mockNotifier struct {
	connected   bool
	closed      bool
	ensureCalls int
	sent        []string
	ensureErr   error
	sendErr     error
}

func (m *mockNotifier) EnsureConnected(time.Duration) (bool, error) {
	m.ensureCalls++
	if m.ensureErr != nil {
		return false, m.ensureErr
	}
	if m.closed {
		return false, nil
	}
	return m.connected, nil
}

func (m *mockNotifier) Send(payload string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, payload)
	return nil
}

func (m *mockNotifier) Close() {
	m.closed = true
}

// scriptedSession replays queued snapshots: the ones passed to the factory
// fire during construction, then each Play pops one from the queue.
type scriptedSession struct {
	cb      engine.Callback
	queue   []*engine.Snapshot
	current *engine.Snapshot
	closed  bool
}

func scriptedFactory(s *scriptedSession, initial ...*engine.Snapshot) SessionFactory {
	return func(cb engine.Callback) (engine.Session, error) {
		s.cb = cb
		for _, snap := range initial {
			s.current = snap
			if err := cb(snap); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
}

func (s *scriptedSession) Play(string) error {
	if len(s.queue) == 0 {
		return fmt.Errorf("scripted session exhausted")
	}
	snap := s.queue[0]
	s.queue = s.queue[1:]
	s.current = snap
	return s.cb(snap)
}

func (s *scriptedSession) Snapshot() *engine.Snapshot { return s.current }

func (s *scriptedSession) Close() error {
	s.closed = true
	return nil
}

// testSnapshot builds a two-player snapshot with a pending state.
func testSnapshot(hand int) *engine.Snapshot {
	snap := &engine.Snapshot{
		Players: []engine.Player{
			{Seat: 0, Name: "user", ChipStack: 990, Blind: 10, Contribution: 10},
			{Seat: 1, Name: "p2", ChipStack: 980, Blind: 20, Contribution: 20},
		},
		NextState:       &engine.State{HandNumber: hand, Raw: fmt.Sprintf("MATCHSTATE:0:%d::AsKh|", hand)},
		MinWager:        20,
		BettingSequence: "",
		LegalActions:    []string{"f", "c", "r"},
	}
	snap.Dealer = &snap.Players[1]
	snap.NextToAct = &snap.Players[0]
	snap.UsersTurn = true
	return snap
}
