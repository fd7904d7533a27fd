// Package eod writes a per-symbol CSV summary of one UTC day's trade log.
// Crypto venues have no market close, so the summary runs at the daily
// reset and again on engine shutdown.
package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"crypto-trading-engine/internal/tradelog"
)

type aggRow struct {
	Symbol      string
	Trades      int
	Wins        int
	Losses      int
	Quantity    float64
	GrossValue  float64
	Fees        float64
	RealizedPnL float64
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func tradeFile(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), d+".txt")
}

func csvPath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "eod", d+".csv")
}

// SummarizeDay aggregates the given UTC day's trade log into a CSV report.
// A missing or empty log is not an error; it returns an empty path.
func SummarizeDay(t time.Time) (string, error) {
	inPath := tradeFile(t)
	if _, err := os.Stat(inPath); err != nil {
		return "", nil
	}
	f, err := os.Open(inPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e tradelog.TradeEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}
		row.Trades++
		if e.PnL > 0 {
			row.Wins++
		} else if e.PnL < 0 {
			row.Losses++
		}
		row.Quantity += e.Quantity
		row.GrossValue += e.Quantity * e.Price
		row.Fees += e.Fee
		row.RealizedPnL += e.PnL
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := csvPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()
	headers := []string{"symbol", "trades", "wins", "losses", "quantity", "gross_value", "fees", "realized_pnl"}
	if err := w.Write(headers); err != nil {
		return "", err
	}

	var totalPnL, totalFees, totalValue float64
	for _, k := range keys {
		r := aggs[k]
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.Trades),
			strconv.Itoa(r.Wins),
			strconv.Itoa(r.Losses),
			fmt.Sprintf("%.8f", r.Quantity),
			fmt.Sprintf("%.2f", r.GrossValue),
			fmt.Sprintf("%.2f", r.Fees),
			fmt.Sprintf("%.2f", r.RealizedPnL),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		totalPnL += r.RealizedPnL
		totalFees += r.Fees
		totalValue += r.GrossValue
	}
	_ = w.Write([]string{"TOTAL", "", "", "", "", fmt.Sprintf("%.2f", totalValue), fmt.Sprintf("%.2f", totalFees), fmt.Sprintf("%.2f", totalPnL)})
	return outPath, nil
}

// SummarizeToday summarizes the current UTC day.
func SummarizeToday() (string, error) {
	return SummarizeDay(time.Now().UTC())
}
