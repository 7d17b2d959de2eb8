// Package translator derives persisted match slices from engine snapshots.
// It is pure: no I/O, no engine references leak into the result.
package translator

import (
	"fmt"
	"sort"

	"github.com/cardroom/tablesync/internal/engine"
	"github.com/cardroom/tablesync/internal/model"
)

// Slice derives an immutable MatchSlice from a snapshot. The snapshot must
// carry a pending next state; callers skip translation when it does not.
func Slice(snap *engine.Snapshot) (*model.MatchSlice, error) {
	if len(snap.Players) == 0 {
		return nil, fmt.Errorf("snapshot has no players")
	}
	if snap.NextState == nil {
		return nil, fmt.Errorf("snapshot has no pending state")
	}
	if snap.Dealer == nil {
		return nil, fmt.Errorf("snapshot has no dealer button holder")
	}

	smallBlindSeat, bigBlindSeat, err := blindSeats(snap.Players)
	if err != nil {
		return nil, err
	}

	slice := &model.MatchSlice{
		HandEnded:       snap.HandEnded,
		MatchEnded:      snap.MatchEnded,
		UsersTurn:       snap.UsersTurn,
		HandNumber:      snap.NextState.HandNumber,
		MinimumWager:    snap.MinWager,
		SmallBlindSeat:  smallBlindSeat,
		BigBlindSeat:    bigBlindSeat,
		DealerSeat:      snap.Dealer.Seat,
		StateString:     snap.NextState.String(),
		BettingSequence: snap.BettingSequence,
		LegalActions:    append([]string(nil), snap.LegalActions...),
		Players:         slicePlayers(snap),
		ActingSequence:  snap.ActingSequence,
	}
	if snap.NextToAct != nil {
		seat := snap.NextToAct.Seat
		slice.NextToActSeat = &seat
	}
	return slice, nil
}

// blindSeats finds the big- and small-blind seats from the players' posted
// blinds. The big blind belongs to the holder of the largest blind; the
// small blind is the largest blind left after removing every player whose
// blind equals that maximum. With three or more players tied at the maximum
// the small blind therefore comes from the next tier down; that matches the
// production behavior this was ported from and is deliberately kept.
// Ties at either chosen value resolve to whichever holder an unordered map
// lookup finds first.
func blindSeats(players []engine.Player) (small, big int, err error) {
	blinds := make(map[int]int, len(players)) // seat -> blind
	for _, p := range players {
		blinds[p.Seat] = p.Blind
	}

	largest := maxBlind(blinds)
	bigSeat, ok := seatWithBlind(blinds, largest)
	if !ok {
		return 0, 0, fmt.Errorf("no big blind holder")
	}

	remaining := make(map[int]int, len(blinds))
	for seat, blind := range blinds {
		if blind != largest {
			remaining[seat] = blind
		}
	}
	smallSeat, ok := seatWithBlind(remaining, maxBlind(remaining))
	if !ok {
		return 0, 0, fmt.Errorf("no small blind holder")
	}
	return smallSeat, bigSeat, nil
}

func maxBlind(blinds map[int]int) int {
	max := 0
	first := true
	for _, b := range blinds {
		if first || b > max {
			max = b
			first = false
		}
	}
	return max
}

func seatWithBlind(blinds map[int]int, amount int) (int, bool) {
	for seat, b := range blinds {
		if b == amount {
			return seat, true
		}
	}
	return 0, false
}

func slicePlayers(snap *engine.Snapshot) []model.SlicePlayer {
	out := make([]model.SlicePlayer, 0, len(snap.Players))
	for i := range snap.Players {
		p := &snap.Players[i]
		out = append(out, model.SlicePlayer{
			Seat:         p.Seat,
			Name:         p.Name,
			ChipStack:    p.ChipStack,
			Blind:        p.Blind,
			Contribution: p.Contribution,
			HoleCards:    p.HoleCards,
			Folded:       p.Folded,
			AllIn:        p.AllIn,
			AmountToCall: snap.AmountToCall(p),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}
