package config

import (
	"slices"
	"testing"
	"time"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("ALLOWED_CODE_PREFIXES", "script_, verify_ ,")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(cfg.AllowedCodePrefixes, []string{"script_", "verify_"}) {
		t.Fatalf("prefixes = %v", cfg.AllowedCodePrefixes)
	}
	if cfg.ConfirmTTL != 60*time.Second || cfg.MaxMediaDurationSec != 600 || cfg.GeminiModel != "gemini-2.0-flash" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error without DISCORD_TOKEN")
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("CONFIRM_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected a parse error")
	}
}
