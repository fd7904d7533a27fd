package tradelog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crypto-trading-engine/internal/types"
)

func TestAppendTradeWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	trade := types.Trade{
		ID:       "trade-1",
		Symbol:   "BTC/USD",
		Side:     types.SideLong,
		Price:    51000,
		Quantity: 0.02,
		Fee:      1.02,
		PnL:      20,
		Reason:   "Take profit hit",
	}
	if err := AppendTrade(trade); err != nil {
		t.Fatalf("AppendTrade: %v", err)
	}

	p := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".txt")
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("reading daily file: %v", err)
	}

	var e TradeEntry
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.TradeID != "trade-1" || e.PnL != 20 {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestAppendSignalWritesSubdir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	sig := types.TradingSignal{
		Symbol:     "ETH/USD",
		Action:     types.ActionBuy,
		Strategy:   "momentum",
		Confidence: 0.7,
		EntryPrice: 3000,
	}
	if err := AppendSignal(sig, false, "Maximum open positions reached"); err != nil {
		t.Fatalf("AppendSignal: %v", err)
	}

	p := filepath.Join(dir, "signals", time.Now().UTC().Format("2006-01-02")+".txt")
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("reading signals file: %v", err)
	}

	var e SignalEntry
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Accepted || e.Reason != "Maximum open positions reached" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestCompressOlderGzipsStaleFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	stale := filepath.Join(dir, "2026-01-01.txt")
	if err := os.WriteFile(stale, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	if err := CompressOlder(7); err != nil {
		t.Fatalf("CompressOlder: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected stale file to be removed")
	}
	if _, err := os.Stat(stale + ".gz"); err != nil {
		t.Errorf("expected gz file: %v", err)
	}
}
