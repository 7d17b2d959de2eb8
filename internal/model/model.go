package model

import "time"

// Match is the aggregate root for one poker match. It owns an ordered,
// append-only collection of MatchSlice records identified by the external
// match ID handed to the bridge at construction.
type Match struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"` // started, finished
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// MatchSlice is one persisted snapshot of table state, derived once per
// engine transition. Slices are immutable after creation; together they form
// the time-ordered log of a match.
type MatchSlice struct {
	ID              string        `json:"id,omitempty"`
	MatchID         string        `json:"match_id,omitempty"`
	HandEnded       bool          `json:"hand_ended"`
	MatchEnded      bool          `json:"match_ended"`
	UsersTurn       bool          `json:"users_turn"`
	HandNumber      int           `json:"hand_number"`
	MinimumWager    int           `json:"minimum_wager"`
	SmallBlindSeat  int           `json:"small_blind_seat"`
	BigBlindSeat    int           `json:"big_blind_seat"`
	DealerSeat      int           `json:"dealer_seat"`
	NextToActSeat   *int          `json:"next_to_act_seat,omitempty"` // nil when no player is next to act
	StateString     string        `json:"state_string"`
	BettingSequence string        `json:"betting_sequence"`
	LegalActions    []string      `json:"legal_actions"`
	Players         []SlicePlayer `json:"players"` // ordered by seat
	ActingSequence  string        `json:"acting_sequence"`
	CreatedAt       time.Time     `json:"created_at,omitempty"`
}

// SlicePlayer is a player's serialized state within a slice, augmented with
// the amount it would cost that player to call.
type SlicePlayer struct {
	Seat         int    `json:"seat"`
	Name         string `json:"name"`
	ChipStack    int    `json:"chip_stack"`
	Blind        int    `json:"blind"`
	Contribution int    `json:"contribution"`
	HoleCards    string `json:"hole_cards,omitempty"`
	Folded       bool   `json:"folded"`
	AllIn        bool   `json:"all_in"`
	AmountToCall int    `json:"amount_to_call"`
}
