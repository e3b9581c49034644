package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "monitor"
log_level = "debug"

[scheduler]
interval = "7s"

[[venue]]
name = "jupiter"
type = "api"
enabled = true
api_url = "https://quote-api.jup.ag/v6"

[[pair]]
token_a = "SOL"
token_b = "USDC"
min_profit_percent = 0.5
enabled = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.Interval.Duration != 7*time.Second {
		t.Errorf("interval = %v, want 7s", cfg.Scheduler.Interval.Duration)
	}
	// Untouched sections keep their defaults.
	if cfg.Scheduler.MaxConcurrentPairs != 4 {
		t.Errorf("max_concurrent_pairs = %d, want default 4", cfg.Scheduler.MaxConcurrentPairs)
	}
	if cfg.Detector.LiquidityFraction != 0.05 {
		t.Errorf("liquidity_fraction = %v, want default 0.05", cfg.Detector.LiquidityFraction)
	}
	if len(cfg.Venues) != 1 || cfg.Venues[0].Name != "jupiter" {
		t.Errorf("venues = %+v, want one jupiter entry", cfg.Venues)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config failed validation: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("mode = \"monitor\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SOLARB_RPC_URL", "https://rpc.example.com")
	t.Setenv("SOLARB_SCHEDULER_INTERVAL", "9s")
	t.Setenv("SOLARB_ARCHIVE_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPC.URL != "https://rpc.example.com" {
		t.Errorf("rpc url = %q, want env override", cfg.RPC.URL)
	}
	if cfg.Scheduler.Interval.Duration != 9*time.Second {
		t.Errorf("interval = %v, want 9s", cfg.Scheduler.Interval.Duration)
	}
	if !cfg.Archive.Enabled {
		t.Error("archive.enabled = false, want env override true")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"
	cfg.RPC.URL = ""
	cfg.Detector.LiquidityFraction = 2.0
	cfg.Pairs = []PairConfig{
		{TokenA: "SOL", TokenB: "SOL", MinProfitPercent: 0.5, Enabled: true},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"unknown mode", "rpc: url", "liquidity_fraction", "tokens must differ"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateTradeModeRequiresWallet(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for trade mode without wallet")
	}
	if !strings.Contains(err.Error(), "keypair_path") {
		t.Errorf("error %q missing wallet complaint", err)
	}
	if !strings.Contains(err.Error(), "program_id") {
		t.Errorf("error %q missing program_id complaint", err)
	}

	cfg.Wallet.KeypairPath = "/tmp/id.json"
	cfg.Program.ProgramID = "Arb1111111111111111111111111111111111111111"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid trade config rejected: %v", err)
	}
}

func TestEnabledVenuesPreservesOrder(t *testing.T) {
	cfg := Defaults()
	cfg.Venues = []VenueConfig{
		{Name: "jupiter", Type: "api", Enabled: true, APIURL: "https://a"},
		{Name: "orca", Type: "api", Enabled: false, APIURL: "https://b"},
		{Name: "raydium", Type: "api", Enabled: true, APIURL: "https://c"},
	}

	got := cfg.EnabledVenues()
	if len(got) != 2 || got[0].Name != "jupiter" || got[1].Name != "raydium" {
		t.Errorf("enabled venues = %+v, want jupiter then raydium", got)
	}
}
