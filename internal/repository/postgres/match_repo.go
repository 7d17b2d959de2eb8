package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cardroom/tablesync/internal/model"
)

// MatchRepo handles match and match_slice database operations.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// Create inserts a new match with the given external ID.
func (r *MatchRepo) Create(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO matches (id, status) VALUES ($1, 'started')
		 RETURNING id, status, created_at, updated_at`,
		id,
	).Scan(&m.ID, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return &m, nil
}

// FindByID returns a match by ID. A missing match is an error: the bridge
// only ever runs against a match the web tier has already created.
func (r *MatchRepo) FindByID(ctx context.Context, id string) (*model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, created_at, updated_at, finished_at
		 FROM matches WHERE id = $1`, id,
	).Scan(&m.ID, &m.Status, &m.CreatedAt, &m.UpdatedAt, &m.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("find match %s: %w", id, err)
	}
	return &m, nil
}

// CreateSlice appends a slice to the match's log. The slice's ID, MatchID,
// and CreatedAt are filled in from the inserted row.
func (r *MatchRepo) CreateSlice(ctx context.Context, matchID string, s *model.MatchSlice) error {
	players, err := json.Marshal(s.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	legal, err := json.Marshal(s.LegalActions)
	if err != nil {
		return fmt.Errorf("marshal legal actions: %w", err)
	}

	var nextToAct sql.NullInt64
	if s.NextToActSeat != nil {
		nextToAct = sql.NullInt64{Int64: int64(*s.NextToActSeat), Valid: true}
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO match_slices
		   (match_id, hand_ended, match_ended, users_turn, hand_number, minimum_wager,
		    small_blind_seat, big_blind_seat, dealer_seat, next_to_act_seat,
		    state_string, betting_sequence, legal_actions, players, acting_sequence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at`,
		matchID, s.HandEnded, s.MatchEnded, s.UsersTurn, s.HandNumber, s.MinimumWager,
		s.SmallBlindSeat, s.BigBlindSeat, s.DealerSeat, nextToAct,
		s.StateString, s.BettingSequence, legal, players, s.ActingSequence,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create match slice: %w", err)
	}
	s.MatchID = matchID
	return nil
}

// Touch bumps the match's updated_at. Inserting a slice does not update the
// parent row, so this runs after every CreateSlice.
func (r *MatchRepo) Touch(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET updated_at = now() WHERE id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("touch match: %w", err)
	}
	return nil
}

// SetFinished marks a match as finished.
func (r *MatchRepo) SetFinished(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = 'finished', finished_at = now(), updated_at = now() WHERE id = $1`,
		matchID)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// ListSlices returns a match's slices oldest first.
func (r *MatchRepo) ListSlices(ctx context.Context, matchID string) ([]model.MatchSlice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, hand_ended, match_ended, users_turn, hand_number, minimum_wager,
		        small_blind_seat, big_blind_seat, dealer_seat, next_to_act_seat,
		        state_string, betting_sequence, legal_actions, players, acting_sequence, created_at
		 FROM match_slices WHERE match_id = $1 ORDER BY created_at, id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list slices: %w", err)
	}
	defer rows.Close()

	var slices []model.MatchSlice
	for rows.Next() {
		var s model.MatchSlice
		var nextToAct sql.NullInt64
		var legal, players []byte
		if err := rows.Scan(&s.ID, &s.MatchID, &s.HandEnded, &s.MatchEnded, &s.UsersTurn, &s.HandNumber, &s.MinimumWager,
			&s.SmallBlindSeat, &s.BigBlindSeat, &s.DealerSeat, &nextToAct,
			&s.StateString, &s.BettingSequence, &legal, &players, &s.ActingSequence, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan slice: %w", err)
		}
		if nextToAct.Valid {
			seat := int(nextToAct.Int64)
			s.NextToActSeat = &seat
		}
		if err := json.Unmarshal(legal, &s.LegalActions); err != nil {
			return nil, fmt.Errorf("unmarshal legal actions: %w", err)
		}
		if err := json.Unmarshal(players, &s.Players); err != nil {
			return nil, fmt.Errorf("unmarshal players: %w", err)
		}
		slices = append(slices, s)
	}
	return slices, rows.Err()
}
