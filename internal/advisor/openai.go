package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"crypto-trading-engine/internal/store"
	"crypto-trading-engine/internal/trace"
	"crypto-trading-engine/internal/types"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// signalSchema is the JSON shape the model is instructed to emit.
const signalSchema = `{"signals":[{"symbol":"string","action":"BUY|SELL|HOLD","confidence":0.0,"reason":"string","target_price":0.0,"stop_loss":0.0,"position_size":0.0}]}`

// OpenAIAdvisor asks an OpenAI chat model for advisory signals. Its output
// goes through arbitration and risk validation like any strategy's.
type OpenAIAdvisor struct {
	cfg      *store.Config
	endpoint string
}

func NewOpenAIAdvisor(cfg *store.Config) *OpenAIAdvisor {
	endpoint := openAIEndpoint
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &OpenAIAdvisor{cfg: cfg, endpoint: endpoint}
}

func (a *OpenAIAdvisor) Advise(ctx context.Context, snapshot *types.AnalysisSnapshot, positions []types.Position, metrics types.RiskMetrics) ([]types.TradingSignal, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY missing")
	}

	state := map[string]any{
		"symbol":     snapshot.Symbol,
		"market":     snapshot.Market,
		"indicators": snapshot.Technicals,
		"sentiment":  snapshot.Sentiment,
		"positions":  positions,
		"metrics":    metrics,
	}
	sb, _ := json.Marshal(state)
	prompt := fmt.Sprintf("You will receive portfolio state as JSON. Respond ONLY with compact JSON matching the schema.\nSchema:%s\nState:%s", signalSchema, string(sb))

	system := a.cfg.Advisor.System
	if system == "" {
		system = "You are a disciplined crypto trader. Output STRICT JSON with BUY/SELL/HOLD signals."
	}

	body := map[string]any{
		"model":       a.cfg.Advisor.Model,
		"messages":    []map[string]string{{"role": "system", "content": system}, {"role": "user", "content": prompt}},
		"temperature": a.cfg.Advisor.Temperature,
		"max_tokens":  a.cfg.Advisor.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", a.endpoint, bytes.NewReader(bb))
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, err
	}
	if len(r.Choices) == 0 {
		return nil, errors.New("no choices")
	}

	out := strings.TrimSpace(r.Choices[0].Message.Content)
	return parseSignals(out, snapshot)
}

type rawSignal struct {
	Symbol       string  `json:"symbol"`
	Action       string  `json:"action"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
	TargetPrice  float64 `json:"target_price"`
	StopLoss     float64 `json:"stop_loss"`
	PositionSize float64 `json:"position_size"`
}

// parseSignals validates model output and drops everything malformed rather
// than erroring, so one bad field cannot poison the cycle.
func parseSignals(out string, snapshot *types.AnalysisSnapshot) ([]types.TradingSignal, error) {
	// Models occasionally wrap JSON in markdown fences.
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)

	var r struct {
		Signals []rawSignal `json:"signals"`
	}
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		return nil, fmt.Errorf("invalid advisor json: %w", err)
	}

	valid := map[string]bool{types.ActionBuy: true, types.ActionSell: true, types.ActionHold: true}
	signals := make([]types.TradingSignal, 0, len(r.Signals))
	for _, raw := range r.Signals {
		action := strings.ToUpper(strings.TrimSpace(raw.Action))
		if !valid[action] || action == types.ActionHold {
			continue
		}
		if raw.Confidence < 0 || raw.Confidence > 1 {
			continue
		}
		symbol := raw.Symbol
		if symbol == "" {
			symbol = snapshot.Symbol
		}
		size := raw.PositionSize
		if size <= 0 || size > 1 {
			size = 0.05
		}
		signals = append(signals, types.TradingSignal{
			ID:           newAdvisorySignalID(),
			Symbol:       symbol,
			Action:       action,
			Confidence:   raw.Confidence,
			Reason:       raw.Reason,
			EntryPrice:   snapshot.Market.Price,
			TargetPrice:  raw.TargetPrice,
			StopLoss:     raw.StopLoss,
			PositionSize: size,
			Leverage:     1,
			Strategy:     "advisor-openai",
			Timestamp:    snapshot.Market.Timestamp,
		})
	}
	return signals, nil
}
