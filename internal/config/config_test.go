package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"MATCH_ID", "DATABASE_URL", "REDIS_URL", "SPECTATE_ADDR",
		"DEALER_ADDR", "GAME_DEF", "SEAT", "PLAYER_NAMES", "HAND_COUNT", "ACCEPT_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.MatchID != "" {
		t.Errorf("MatchID = %q, want empty", cfg.MatchID)
	}
	if cfg.SpectateAddr != "0.0.0.0:25252" {
		t.Errorf("SpectateAddr = %q", cfg.SpectateAddr)
	}
	if cfg.DealerAddr != "localhost:18791" {
		t.Errorf("DealerAddr = %q", cfg.DealerAddr)
	}
	if cfg.Seat != 0 {
		t.Errorf("Seat = %d, want 0", cfg.Seat)
	}
	if len(cfg.PlayerNames) != 2 || cfg.PlayerNames[0] != "user" || cfg.PlayerNames[1] != "p2" {
		t.Errorf("PlayerNames = %v", cfg.PlayerNames)
	}
	if cfg.HandCount != 1 {
		t.Errorf("HandCount = %d, want 1", cfg.HandCount)
	}
	if cfg.AcceptTimeout != 30*time.Second {
		t.Errorf("AcceptTimeout = %s, want 30s", cfg.AcceptTimeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MATCH_ID", "m-99")
	t.Setenv("SPECTATE_ADDR", "127.0.0.1:9000")
	t.Setenv("SEAT", "1")
	t.Setenv("PLAYER_NAMES", "alice bob carol")
	t.Setenv("HAND_COUNT", "50")
	t.Setenv("ACCEPT_TIMEOUT", "2m")

	cfg := Load()

	if cfg.MatchID != "m-99" {
		t.Errorf("MatchID = %q", cfg.MatchID)
	}
	if cfg.SpectateAddr != "127.0.0.1:9000" {
		t.Errorf("SpectateAddr = %q", cfg.SpectateAddr)
	}
	if cfg.Seat != 1 {
		t.Errorf("Seat = %d", cfg.Seat)
	}
	if len(cfg.PlayerNames) != 3 || cfg.PlayerNames[2] != "carol" {
		t.Errorf("PlayerNames = %v", cfg.PlayerNames)
	}
	if cfg.HandCount != 50 {
		t.Errorf("HandCount = %d", cfg.HandCount)
	}
	if cfg.AcceptTimeout != 2*time.Minute {
		t.Errorf("AcceptTimeout = %s", cfg.AcceptTimeout)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SEAT", "not-a-number")
	t.Setenv("ACCEPT_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Seat != 0 {
		t.Errorf("Seat = %d, want fallback 0", cfg.Seat)
	}
	if cfg.AcceptTimeout != 30*time.Second {
		t.Errorf("AcceptTimeout = %s, want fallback 30s", cfg.AcceptTimeout)
	}
}
