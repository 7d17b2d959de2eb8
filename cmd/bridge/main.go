package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/cardroom/tablesync/internal/bridge"
	"github.com/cardroom/tablesync/internal/channel"
	"github.com/cardroom/tablesync/internal/config"
	"github.com/cardroom/tablesync/internal/engine"
	"github.com/cardroom/tablesync/internal/logger"
	"github.com/cardroom/tablesync/internal/repository/postgres"
	redisrepo "github.com/cardroom/tablesync/internal/repository/redis"
)

func main() {
	logger.Init()
	cfg := config.Load()
	if cfg.MatchID == "" {
		log.Fatal().Msg("MATCH_ID is required")
	}
	log.Info().Str("matchId", cfg.MatchID).Str("dealer", cfg.DealerAddr).
		Str("spectateAddr", cfg.SpectateAddr).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()
	matches := postgres.NewMatchRepo(db)

	// Redis
	cache, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer cache.Close()

	// Spectator channel
	notifier := channel.New(cfg.SpectateAddr, logger.Get())
	defer notifier.Close()

	// Engine session wired through the bridge. The initial transitions are
	// processed synchronously before New returns.
	b, err := bridge.New(
		cfg.MatchID,
		func(cb engine.Callback) (engine.Session, error) {
			return engine.NewDealerSession(engine.DealerConfig{
				Dealer:      engine.DealerInfo{Addr: cfg.DealerAddr},
				Seat:        cfg.Seat,
				Game:        engine.FileReference{Path: cfg.GameDefPath},
				PlayerNames: cfg.PlayerNames,
				HandCount:   cfg.HandCount,
			}, cb, logger.Get())
		},
		matches,
		cache,
		notifier,
		cfg.AcceptTimeout,
		logger.Get(),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Bridge construction failed")
	}
	defer b.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Actions arrive one per line on stdin, from the operator or the web
	// tier driving this process.
	actions := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				actions <- line
			}
		}
		close(actions)
	}()

	for !b.MatchEnded() {
		select {
		case action, ok := <-actions:
			if !ok {
				log.Info().Msg("Action input closed")
				cleanup(cache, cfg.MatchID)
				return
			}
			if err := b.Play(action); err != nil {
				log.Error().Err(err).Str("action", action).Msg("Match update failed")
				cleanup(cache, cfg.MatchID)
				return
			}
		case <-quit:
			log.Info().Msg("Shutting down bridge")
			cleanup(cache, cfg.MatchID)
			return
		}
	}
	log.Info().Str("matchId", cfg.MatchID).Msg("Match ended")
	cleanup(cache, cfg.MatchID)
}

// cleanup drops the live cache entries for the match; the durable slice log
// stays in Postgres.
func cleanup(cache *redisrepo.Client, matchID string) {
	if err := cache.DeleteMatchData(context.Background(), matchID); err != nil {
		log.Warn().Err(err).Msg("Failed to clear match cache")
	}
}
