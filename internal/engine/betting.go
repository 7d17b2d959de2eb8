package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// replay is the betting state reconstructed from one match state's betting
// string. Contributions are totals for the whole hand.
type replay struct {
	def     *GameDef
	contrib []int
	folded  []bool
	allIn   []bool

	currentMax      int
	lastRaiseDelta  int
	round           int
	raisesThisRound int

	nextToAct      int // -1 when nobody is to act
	handEnded      bool
	minWager       int
	actingSequence string
}

// replayBetting applies a match-state betting string (rounds separated by
// '/') to a fresh hand under def. Blinds are posted before the first action.
func replayBetting(def *GameDef, betting string) (*replay, error) {
	n := def.NumPlayers
	r := &replay{
		def:       def,
		contrib:   make([]int, n),
		folded:    make([]bool, n),
		allIn:     make([]bool, n),
		nextToAct: -1,
	}
	for i := 0; i < n; i++ {
		r.commit(i, def.Blinds[i])
	}
	r.lastRaiseDelta = def.BigBlind()
	if r.lastRaiseDelta == 0 {
		r.lastRaiseDelta = 1
	}

	rounds := strings.Split(betting, "/")
	seqParts := make([]string, 0, len(rounds))
	for ri, actions := range rounds {
		if ri >= def.NumRounds {
			return nil, fmt.Errorf("round %d exceeds %d rounds", ri, def.NumRounds)
		}
		r.round = ri
		r.raisesThisRound = 0

		if r.activeCount() <= 1 {
			if actions != "" {
				return nil, fmt.Errorf("actions after hand ended")
			}
			r.handEnded = true
			seqParts = append(seqParts, "")
			continue
		}

		toAct := r.canActCount()
		cur := r.nextActor(r.firstToAct(ri))
		var seq strings.Builder

		pos := 0
		for pos < len(actions) {
			if r.activeCount() <= 1 || cur < 0 || toAct <= 0 {
				return nil, fmt.Errorf("action with nobody to act in round %d", ri)
			}
			ch := actions[pos]
			pos++
			amt := 0
			hasAmt := false
			for pos < len(actions) && actions[pos] >= '0' && actions[pos] <= '9' {
				amt = amt*10 + int(actions[pos]-'0')
				hasAmt = true
				pos++
			}

			actor := cur
			seq.WriteString(strconv.Itoa(actor))
			switch ch {
			case 'f':
				r.folded[actor] = true
				toAct--
			case 'c':
				r.commit(actor, r.currentMax)
				toAct--
			case 'r':
				var target int
				if def.Limit {
					target = r.currentMax + def.RaiseSizes[ri]
				} else {
					if !hasAmt {
						return nil, fmt.Errorf("no-limit raise without amount")
					}
					target = amt
				}
				if target <= r.currentMax {
					return nil, fmt.Errorf("raise to %d does not exceed %d", target, r.currentMax)
				}
				r.lastRaiseDelta = target - r.currentMax
				r.currentMax = target
				r.commit(actor, target)
				r.raisesThisRound++
				toAct = r.canActCount()
				if !r.allIn[actor] {
					toAct--
				}
			default:
				return nil, fmt.Errorf("unknown action %q", string(ch))
			}
			cur = r.nextActor(actor + 1)
		}
		seqParts = append(seqParts, seq.String())

		if r.activeCount() <= 1 {
			r.handEnded = true
			break
		}
		if toAct > 0 {
			r.nextToAct = cur
			break
		}
		// Round closed. Showdown when this was the final round; an
		// intermediate closed round without a successor marker means the
		// dealer is about to open the next one and nobody acts meanwhile.
		if ri == len(rounds)-1 && ri == def.NumRounds-1 {
			r.handEnded = true
		}
	}

	r.actingSequence = strings.Join(seqParts, "/")
	if def.Limit {
		r.minWager = def.RaiseSizes[r.round]
	} else {
		r.minWager = r.lastRaiseDelta
	}
	if r.handEnded {
		r.nextToAct = -1
	}
	return r, nil
}

// commit raises player i's total contribution to target, capped at the
// player's stack; reaching the cap puts the player all in.
func (r *replay) commit(i, target int) {
	if target > r.def.Stacks[i] {
		target = r.def.Stacks[i]
	}
	if target > r.contrib[i] {
		r.contrib[i] = target
	}
	if r.contrib[i] >= r.def.Stacks[i] {
		r.allIn[i] = true
	}
	if r.contrib[i] > r.currentMax {
		r.currentMax = r.contrib[i]
	}
}

func (r *replay) activeCount() int {
	n := 0
	for i := range r.folded {
		if !r.folded[i] {
			n++
		}
	}
	return n
}

func (r *replay) canActCount() int {
	n := 0
	for i := range r.folded {
		if !r.folded[i] && !r.allIn[i] {
			n++
		}
	}
	return n
}

// nextActor returns the first player at or after position from (wrapping)
// who can still act, or -1.
func (r *replay) nextActor(from int) int {
	n := len(r.folded)
	for k := 0; k < n; k++ {
		i := (from + k) % n
		if !r.folded[i] && !r.allIn[i] {
			return i
		}
	}
	return -1
}

func (r *replay) firstToAct(round int) int {
	if round < len(r.def.FirstPlayer) && r.def.FirstPlayer[round] > 0 {
		return r.def.FirstPlayer[round] - 1
	}
	return 0
}

// legalActions lists the actions open to seat in ACPC notation.
func legalActions(def *GameDef, r *replay, seat int) []string {
	toCall := r.currentMax - r.contrib[seat]
	var actions []string
	if toCall > 0 {
		actions = append(actions, "f")
	}
	actions = append(actions, "c")

	stack := def.Stacks[seat] - r.contrib[seat]
	canRaise := stack > toCall
	if def.Limit {
		if r.round < len(def.MaxRaises) && def.MaxRaises[r.round] > 0 && r.raisesThisRound >= def.MaxRaises[r.round] {
			canRaise = false
		}
		if canRaise {
			actions = append(actions, "r")
		}
		return actions
	}
	if canRaise {
		min := r.currentMax + r.lastRaiseDelta
		if all := r.contrib[seat] + stack; min > all {
			min = all
		}
		actions = append(actions, "r"+strconv.Itoa(min))
	}
	return actions
}
