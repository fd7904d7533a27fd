package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	p := writeConfig(t, `
mode: PAPER
pairs: ["BTC/USD"]
risk:
  max_position_size: 0.2
  max_daily_loss: 0.05
  max_open_positions: 3
  stop_loss_pct: 0.05
  take_profit_pct: 0.1
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AnalysisInterval() != 300*time.Second {
		t.Errorf("analysis interval = %v, want 5m", cfg.AnalysisInterval())
	}
	if cfg.MonitorInterval() != 10*time.Second {
		t.Errorf("monitor interval = %v, want 10s", cfg.MonitorInterval())
	}
	if cfg.Risk.InitialCapital != 10000 {
		t.Errorf("initial capital = %v, want 10000", cfg.Risk.InitialCapital)
	}
	if cfg.Risk.SizingMethod != "FIXED" {
		t.Errorf("sizing method = %q, want FIXED", cfg.Risk.SizingMethod)
	}
	if cfg.Arbiter.MinConfidence != 0.6 {
		t.Errorf("min confidence = %v, want 0.6", cfg.Arbiter.MinConfidence)
	}
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	p := writeConfig(t, `
mode: DRY_RUN
pairs: ["BTC/USD"]
risk:
  max_position_size: 0.2
  max_daily_loss: 0.05
  max_open_positions: 3
  stop_loss_pct: 0.05
  take_profit_pct: 0.1
`)
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected validation error for mode")
	}
}

func TestLoadConfigRejectsOversizedPosition(t *testing.T) {
	p := writeConfig(t, `
mode: PAPER
pairs: ["BTC/USD"]
risk:
  max_position_size: 1.5
  max_daily_loss: 0.05
  max_open_positions: 3
  stop_loss_pct: 0.05
  take_profit_pct: 0.1
`)
	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected validation error for max_position_size")
	}
}
