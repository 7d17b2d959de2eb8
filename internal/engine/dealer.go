package engine

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const versionLine = "VERSION:2.0.0\r\n"

// DealerConfig carries everything needed to open a dealer session.
type DealerConfig struct {
	Dealer      DealerInfo
	Seat        int // our 0-based position
	Game        GameDefinition
	PlayerNames []string
	HandCount   int
	DialTimeout time.Duration
}

// DealerSession is a Session backed by a TCP connection to an ACPC dealer.
// It tracks betting state by replaying each received match state against the
// game definition; hand evaluation and winnings are the dealer's business.
//
// All reads happen on the caller's goroutine: the registered callback runs
// synchronously during NewDealerSession and inside every Play.
type DealerSession struct {
	cfg  DealerConfig
	def  *GameDef
	conn net.Conn
	rd   *bufio.Reader
	cb   Callback
	log  zerolog.Logger

	snap    *Snapshot
	lastRaw string
}

// NewDealerSession connects to the dealer, resolves the game definition, and
// fires cb once for the pre-hand state and then for every received match
// state until control returns to the caller.
func NewDealerSession(cfg DealerConfig, cb Callback, log zerolog.Logger) (*DealerSession, error) {
	def, err := cfg.Game.Resolve()
	if err != nil {
		return nil, err
	}
	if cfg.Seat < 0 || cfg.Seat >= def.NumPlayers {
		return nil, fmt.Errorf("seat %d out of range for %d players", cfg.Seat, def.NumPlayers)
	}

	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("tcp", cfg.Dealer.Addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial dealer: %w", err)
	}
	if _, err := conn.Write([]byte(versionLine)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send version: %w", err)
	}

	s := &DealerSession{
		cfg:  cfg,
		def:  def,
		conn: conn,
		rd:   bufio.NewReader(conn),
		cb:   cb,
		log:  log,
	}
	s.snap = s.preHandSnapshot()

	log.Info().Str("dealer", cfg.Dealer.Addr).Int("seat", cfg.Seat).
		Int("hands", cfg.HandCount).Msg("Dealer session open")

	// Pre-hand callback: no pending state yet.
	if err := cb(s.snap); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.advance(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Play forwards an action to the dealer and consumes match states until it
// is our turn again or the match has ended, invoking the callback for each.
func (s *DealerSession) Play(action string) error {
	if s.lastRaw == "" {
		return fmt.Errorf("no match state to act on")
	}
	if _, err := fmt.Fprintf(s.conn, "%s:%s\r\n", s.lastRaw, action); err != nil {
		return fmt.Errorf("send action: %w", err)
	}
	return s.advance()
}

// Snapshot returns the current table snapshot.
func (s *DealerSession) Snapshot() *Snapshot { return s.snap }

// Close tears down the dealer connection.
func (s *DealerSession) Close() error { return s.conn.Close() }

// advance reads match states until control should return to the caller:
// it is our turn to act, or the match is over.
func (s *DealerSession) advance() error {
	for {
		line, err := s.rd.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Dealer hung up: the match is over.
				s.snap.MatchEnded = true
				return nil
			}
			return fmt.Errorf("read match state: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" || !strings.HasPrefix(line, "MATCHSTATE") {
			continue
		}

		snap, err := s.parseMatchState(line)
		if err != nil {
			return err
		}
		s.snap = snap
		s.lastRaw = line

		if err := s.cb(snap); err != nil {
			return err
		}
		if snap.UsersTurn || snap.MatchEnded {
			return nil
		}
	}
}

// preHandSnapshot builds the table state before the first hand is dealt.
func (s *DealerSession) preHandSnapshot() *Snapshot {
	players := make([]Player, s.def.NumPlayers)
	for i := range players {
		players[i] = Player{
			Seat:      i,
			Name:      s.playerName(i),
			ChipStack: s.def.Stacks[i],
			Blind:     s.def.Blinds[i],
		}
	}
	return &Snapshot{
		Players:  players,
		MinWager: s.def.BigBlind(),
		Dealer:   &players[s.def.NumPlayers-1],
	}
}

func (s *DealerSession) playerName(pos int) string {
	if pos < len(s.cfg.PlayerNames) {
		return s.cfg.PlayerNames[pos]
	}
	return fmt.Sprintf("p%d", pos+1)
}

// parseMatchState turns one MATCHSTATE line into a Snapshot.
// Format: MATCHSTATE:<position>:<hand>:<betting>:<cards>
func (s *DealerSession) parseMatchState(line string) (*Snapshot, error) {
	parts := strings.SplitN(line, ":", 5)
	if len(parts) < 5 {
		return nil, fmt.Errorf("malformed match state %q", line)
	}
	pos, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("match state position: %w", err)
	}
	if pos != s.cfg.Seat {
		return nil, fmt.Errorf("match state for position %d, expected %d", pos, s.cfg.Seat)
	}
	hand, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("match state hand number: %w", err)
	}
	betting := parts[3]
	cards := parts[4]

	rep, err := replayBetting(s.def, betting)
	if err != nil {
		return nil, fmt.Errorf("betting %q: %w", betting, err)
	}

	players := make([]Player, s.def.NumPlayers)
	holes := parseHoleCards(cards)
	for i := range players {
		players[i] = Player{
			Seat:         i,
			Name:         s.playerName(i),
			ChipStack:    s.def.Stacks[i] - rep.contrib[i],
			Blind:        s.def.Blinds[i],
			Contribution: rep.contrib[i],
			Folded:       rep.folded[i],
			AllIn:        rep.allIn[i],
		}
		if i < len(holes) {
			players[i].HoleCards = holes[i]
		}
	}

	snap := &Snapshot{
		Players:         players,
		HandEnded:       rep.handEnded,
		NextState:       &State{HandNumber: hand, Raw: line},
		MinWager:        rep.minWager,
		Dealer:          &players[s.def.NumPlayers-1],
		BettingSequence: betting,
		ActingSequence:  rep.actingSequence,
	}
	if rep.nextToAct >= 0 {
		snap.NextToAct = &players[rep.nextToAct]
		snap.UsersTurn = rep.nextToAct == s.cfg.Seat
	}
	if snap.UsersTurn {
		snap.LegalActions = legalActions(s.def, rep, s.cfg.Seat)
	}
	if rep.handEnded && hand+1 >= s.cfg.HandCount {
		snap.MatchEnded = true
	}
	return snap, nil
}

// parseHoleCards extracts the per-player hole card strings from the cards
// section of a match state (everything before the first board separator).
func parseHoleCards(cards string) []string {
	holeSection := cards
	if i := strings.IndexByte(cards, '/'); i >= 0 {
		holeSection = cards[:i]
	}
	return strings.Split(holeSection, "|")
}
