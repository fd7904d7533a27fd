package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crypto-trading-engine/internal/types"
)

var mu sync.Mutex

// TradeEntry is one ledger trade as it was recorded.
type TradeEntry struct {
	Time     string         `json:"time"`
	TradeID  string         `json:"trade_id"`
	Symbol   string         `json:"symbol"`
	Side     string         `json:"side"`
	Price    float64        `json:"price"`
	Quantity float64        `json:"quantity"`
	Fee      float64        `json:"fee"`
	PnL      float64        `json:"pnl"`
	Reason   string         `json:"reason"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// SignalEntry records an arbitrated signal and what risk validation did
// with it.
type SignalEntry struct {
	Time       string         `json:"time"`
	Symbol     string         `json:"symbol"`
	Action     string         `json:"action"`
	Strategy   string         `json:"strategy"`
	Confidence float64        `json:"confidence"`
	Price      float64        `json:"price"`
	Accepted   bool           `json:"accepted"`
	Reason     string         `json:"reason"`
	Extra      map[string]any `json:"extra,omitempty"`
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), d+".txt")
}

func signalsFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "signals", d+".txt")
}

// AppendTrade writes one ledger trade to the current UTC day's JSONL file.
func AppendTrade(trade types.Trade) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	e := TradeEntry{
		Time:     now.Format("2006-01-02 15:04:05"),
		TradeID:  trade.ID,
		Symbol:   trade.Symbol,
		Side:     trade.Side,
		Price:    trade.Price,
		Quantity: trade.Quantity,
		Fee:      trade.Fee,
		PnL:      trade.PnL,
		Reason:   trade.Reason,
	}
	return appendLine(dailyFilepath(now), e)
}

// AppendSignal writes one arbitrated signal and its validation outcome.
func AppendSignal(sig types.TradingSignal, accepted bool, reason string) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	e := SignalEntry{
		Time:       now.Format("2006-01-02 15:04:05"),
		Symbol:     sig.Symbol,
		Action:     sig.Action,
		Strategy:   sig.Strategy,
		Confidence: sig.Confidence,
		Price:      sig.EntryPrice,
		Accepted:   accepted,
		Reason:     reason,
	}
	return appendLine(signalsFilepath(now), e)
}

func appendLine(p string, v any) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(v)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips log files older than retentionDays and removes the
// originals.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil {
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		if info.ModTime().Before(cutoff) {
			gz := p + ".gz"
			// if already gz exists, remove original .txt
			if _, e2 := os.Stat(gz); e2 == nil {
				_ = os.Remove(p)
				return nil
			}

			in, e3 := os.Open(p)
			if e3 != nil {
				return nil
			}
			defer in.Close()

			out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if e4 != nil {
				return nil
			}
			gw := gzip.NewWriter(out)
			if _, e5 := io.Copy(gw, in); e5 == nil {
				_ = gw.Close()
				_ = out.Close()
				_ = os.Remove(p)
			} else {
				_ = gw.Close()
				_ = out.Close()
			}
		}
		return nil
	})
}
