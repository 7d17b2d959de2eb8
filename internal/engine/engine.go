// Package engine exposes the poker-protocol engine at its interface
// boundary: a Session produces read-only table Snapshots after every
// transition and accepts forwarded actions. The bridge never reaches past
// these types into dealer internals.
package engine

// Player is one seated player's state as the engine reports it.
type Player struct {
	Seat         int
	Name         string
	ChipStack    int
	Blind        int // forced contribution posted at hand start
	Contribution int // total chips committed this hand, blind included
	HoleCards    string
	Folded       bool
	AllIn        bool
}

// State is the pending game state reached by a transition. It is nil on the
// very first callback, before any hand has begun.
type State struct {
	HandNumber int
	Raw        string
}

// String renders the state in its wire form.
func (s *State) String() string { return s.Raw }

// Snapshot is the engine's view of the table immediately after a transition.
// All fields are read-only to consumers.
type Snapshot struct {
	Players         []Player // ordered by seat
	HandEnded       bool
	MatchEnded      bool
	UsersTurn       bool
	NextState       *State
	MinWager        int
	Dealer          *Player // holder of the dealer button
	NextToAct       *Player // nil when no player is next to act
	BettingSequence string
	LegalActions    []string
	ActingSequence  string
}

// AmountToCall returns how many additional chips p must commit to match the
// largest contribution currently on the table.
func (s *Snapshot) AmountToCall(p *Player) int {
	max := 0
	for i := range s.Players {
		if s.Players[i].Contribution > max {
			max = s.Players[i].Contribution
		}
	}
	diff := max - p.Contribution
	if diff < 0 {
		return 0
	}
	if diff > p.ChipStack {
		return p.ChipStack
	}
	return diff
}

// Callback is invoked synchronously after the session's initial setup and
// after every subsequent transition. A non-nil error aborts the call that
// triggered the transition.
type Callback func(*Snapshot) error

// Session is a live connection to the engine for one match.
type Session interface {
	// Play forwards an action to the engine. The registered Callback runs
	// synchronously with the post-action snapshot before Play returns.
	Play(action string) error
	// Snapshot returns the current table snapshot.
	Snapshot() *Snapshot
	Close() error
}

// DealerInfo locates the dealer a session connects to.
type DealerInfo struct {
	Addr string
}
