// Package bridge synchronizes engine transitions to the durable slice store
// and the spectator notification channel.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cardroom/tablesync/internal/engine"
	"github.com/cardroom/tablesync/internal/model"
	"github.com/cardroom/tablesync/internal/repository"
	"github.com/cardroom/tablesync/internal/translator"
)

// ErrUnableToCreateSlice is returned when persisting or announcing a new
// match slice fails. The original cause is wrapped.
var ErrUnableToCreateSlice = errors.New("unable to create match slice")

// Notifier is the spectator notification channel as the bridge drives it.
// Implemented by channel.Server.
type Notifier interface {
	EnsureConnected(timeout time.Duration) (bool, error)
	Send(payload string) error
	Close()
}

// SessionFactory opens an engine session with the bridge's transition
// callback registered. The callback fires synchronously inside the factory
// for the engine's initial setup.
type SessionFactory func(engine.Callback) (engine.Session, error)

// Bridge drives one match: translate each snapshot, persist the slice, and
// announce it to the spectator.
type Bridge struct {
	matchID       string
	session       engine.Session
	matches       repository.MatchRepository
	cache         repository.SliceCache // optional
	notifier      Notifier
	acceptTimeout time.Duration
	log           zerolog.Logger
}

// New wires the bridge's callback into a fresh engine session. Transitions
// arriving during session setup are processed before New returns; a nil
// pending state on the first callback is logged and skipped.
func New(
	matchID string,
	connect SessionFactory,
	matches repository.MatchRepository,
	cache repository.SliceCache,
	notifier Notifier,
	acceptTimeout time.Duration,
	log zerolog.Logger,
) (*Bridge, error) {
	b := &Bridge{
		matchID:       matchID,
		matches:       matches,
		cache:         cache,
		notifier:      notifier,
		acceptTimeout: acceptTimeout,
		log:           log.With().Str("matchId", matchID).Logger(),
	}
	b.log.Info().Dur("acceptTimeout", acceptTimeout).Msg("Constructing match bridge")

	session, err := connect(b.handleTransition)
	if err != nil {
		return nil, err
	}
	b.session = session
	return b, nil
}

// Play forwards an action to the engine. The engine invokes the transition
// callback synchronously, so by the time Play returns the resulting slice is
// persisted and announced, or the wrapped error explains why not.
func (b *Bridge) Play(action string) error {
	b.log.Info().Str("action", action).Msg("Forwarding action")
	return b.session.Play(action)
}

// MatchEnded reports whether the engine considers the match over. Read-only.
func (b *Bridge) MatchEnded() bool {
	snap := b.session.Snapshot()
	ended := snap != nil && snap.MatchEnded
	b.log.Info().Bool("matchEnded", ended).Msg("Match ended query")
	return ended
}

// Close releases the engine session and the notification channel.
func (b *Bridge) Close() error {
	b.notifier.Close()
	return b.session.Close()
}

// handleTransition is the engine callback. The very first transition, before
// any hand has begun, carries no pending state and is skipped.
func (b *Bridge) handleTransition(snap *engine.Snapshot) error {
	if snap.NextState == nil {
		b.log.Info().Bool("beforeFirstState", true).Msg("Skipping transition with no pending state")
		return nil
	}
	return b.updateMatch(snap)
}

// updateMatch runs the full update sequence for one qualifying transition.
// Persistence and notification failures are unified under
// ErrUnableToCreateSlice, with the channel released first; translation
// failures propagate untouched.
func (b *Bridge) updateMatch(snap *engine.Snapshot) error {
	slice, err := translator.Slice(snap)
	if err != nil {
		return err
	}

	b.log.Info().
		Int("handNumber", slice.HandNumber).
		Bool("handEnded", slice.HandEnded).
		Bool("matchEnded", slice.MatchEnded).
		Bool("usersTurn", slice.UsersTurn).
		Str("bettingSequence", slice.BettingSequence).
		Msg("Match transition")

	if err := b.persistAndNotify(slice); err != nil {
		b.notifier.Close()
		return fmt.Errorf("%w: %w", ErrUnableToCreateSlice, err)
	}
	return nil
}

func (b *Bridge) persistAndNotify(slice *model.MatchSlice) error {
	ctx := context.Background()

	match, err := b.matches.FindByID(ctx, b.matchID)
	if err != nil {
		return err
	}
	if err := b.matches.CreateSlice(ctx, match.ID, slice); err != nil {
		return err
	}
	// Inserting a slice does not update the match row.
	if err := b.matches.Touch(ctx, match.ID); err != nil {
		return err
	}
	if slice.MatchEnded {
		if err := b.matches.SetFinished(ctx, match.ID); err != nil {
			return err
		}
	}

	b.cacheLatest(ctx, slice)

	connected, err := b.notifier.EnsureConnected(b.acceptTimeout)
	if err != nil {
		return err
	}
	if connected {
		b.log.Info().Msg("Notifying spectator")
		if err := b.notifier.Send(b.matchID); err != nil {
			return err
		}
	}
	if slice.MatchEnded {
		b.notifier.Close()
	}
	return nil
}

// cacheLatest mirrors the newest slice into the live cache. Best-effort: the
// durable store is authoritative, so cache failures only log.
func (b *Bridge) cacheLatest(ctx context.Context, slice *model.MatchSlice) {
	if b.cache == nil {
		return
	}
	payload, err := json.Marshal(slice)
	if err != nil {
		b.log.Warn().Err(err).Msg("Failed to marshal slice for cache")
		return
	}
	if err := b.cache.SetLatestSlice(ctx, b.matchID, payload); err != nil {
		b.log.Warn().Err(err).Msg("Failed to cache latest slice")
	}
}
