package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// GameDef is a parsed ACPC game definition.
type GameDef struct {
	Limit         bool
	NumPlayers    int
	NumRounds     int
	Stacks        []int // starting stack per position
	Blinds        []int // forced bet per position
	RaiseSizes    []int // fixed raise size per round (limit games)
	FirstPlayer   []int // 1-based first position to act per round
	MaxRaises     []int // raise cap per round, 0 = unlimited
	NumHoleCards  int
	NumBoardCards []int
}

// BigBlind returns the largest forced bet in the definition.
func (g *GameDef) BigBlind() int {
	max := 0
	for _, b := range g.Blinds {
		if b > max {
			max = b
		}
	}
	return max
}

// GameDefinition supplies a game definition either inline or by file
// reference; Resolve yields the concrete definition before a session is
// constructed.
type GameDefinition interface {
	Resolve() (*GameDef, error)
}

// InlineDefinition wraps an already-built GameDef.
type InlineDefinition struct {
	Def *GameDef
}

// Resolve returns the wrapped definition.
func (d InlineDefinition) Resolve() (*GameDef, error) {
	if d.Def == nil {
		return nil, fmt.Errorf("inline game definition is nil")
	}
	return d.Def, nil
}

// FileReference names a game definition file on disk.
type FileReference struct {
	Path string
}

// Resolve reads and parses the referenced file.
func (d FileReference) Resolve() (*GameDef, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("open game definition: %w", err)
	}
	defer f.Close()

	def, err := ParseGameDef(f)
	if err != nil {
		return nil, fmt.Errorf("parse game definition %s: %w", d.Path, err)
	}
	return def, nil
}

// ParseGameDef parses an ACPC game definition. Keys are case-insensitive;
// the bare tokens "limit" and "nolimit" select the betting type. Lines
// outside the GAMEDEF/END GAMEDEF block and '#' comments are ignored.
func ParseGameDef(r io.Reader) (*GameDef, error) {
	def := &GameDef{}
	inBlock := false
	sawBlock := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case lower == "gamedef":
			inBlock = true
			sawBlock = true
			continue
		case lower == "end gamedef":
			inBlock = false
			continue
		}
		if !inBlock {
			continue
		}

		if lower == "limit" {
			def.Limit = true
			continue
		}
		if lower == "nolimit" {
			def.Limit = false
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "numplayers":
			def.NumPlayers, err = strconv.Atoi(value)
		case "numrounds":
			def.NumRounds, err = strconv.Atoi(value)
		case "stack":
			def.Stacks, err = parseIntVector(value)
		case "blind":
			def.Blinds, err = parseIntVector(value)
		case "raisesize":
			def.RaiseSizes, err = parseIntVector(value)
		case "firstplayer":
			def.FirstPlayer, err = parseIntVector(value)
		case "maxraises":
			def.MaxRaises, err = parseIntVector(value)
		case "numholecards":
			def.NumHoleCards, err = strconv.Atoi(value)
		case "numboardcards":
			def.NumBoardCards, err = parseIntVector(value)
		case "numsuits", "numranks":
			// deck shape is irrelevant to betting state
		default:
			// unknown keys are tolerated, as the reference dealer does
		}
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawBlock {
		return nil, fmt.Errorf("no GAMEDEF block found")
	}

	if def.NumPlayers < 2 {
		return nil, fmt.Errorf("numPlayers must be at least 2, got %d", def.NumPlayers)
	}
	if def.NumRounds < 1 {
		return nil, fmt.Errorf("numRounds must be at least 1, got %d", def.NumRounds)
	}
	if len(def.Blinds) < def.NumPlayers {
		// missing entries post nothing
		for len(def.Blinds) < def.NumPlayers {
			def.Blinds = append(def.Blinds, 0)
		}
	}
	if len(def.Stacks) < def.NumPlayers {
		return nil, fmt.Errorf("stack vector has %d entries for %d players", len(def.Stacks), def.NumPlayers)
	}
	if def.Limit && len(def.RaiseSizes) < def.NumRounds {
		return nil, fmt.Errorf("raiseSize vector has %d entries for %d rounds", len(def.RaiseSizes), def.NumRounds)
	}
	return def, nil
}

func parseIntVector(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}
