package repository

import (
	"context"
	"encoding/json"

	"github.com/cardroom/tablesync/internal/model"
)

// MatchRepository defines the durable match and slice store. Slices are
// append-only; inserting one does not update the parent match row, so the
// bridge bumps it explicitly via Touch.
type MatchRepository interface {
	// FindByID returns the match or an error when it does not exist.
	FindByID(ctx context.Context, id string) (*model.Match, error)
	// CreateSlice appends one immutable slice under the match. The slice's
	// ID and CreatedAt are filled in on success.
	CreateSlice(ctx context.Context, matchID string, slice *model.MatchSlice) error
	// Touch bumps the match's updated_at timestamp.
	Touch(ctx context.Context, matchID string) error
	// SetFinished marks the match finished.
	SetFinished(ctx context.Context, matchID string) error
}

// SliceCache defines the live latest-slice cache (Redis). Writes are
// best-effort on the bridge's path; the durable store stays authoritative.
type SliceCache interface {
	SetLatestSlice(ctx context.Context, matchID string, slice json.RawMessage) error
	GetLatestSlice(ctx context.Context, matchID string) (json.RawMessage, error)
	DeleteMatchData(ctx context.Context, matchID string) error
}
