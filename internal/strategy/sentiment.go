package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"crypto-trading-engine/internal/types"
)

// Sentiment trades social extremes. Conviction is lower than the technical
// strategies, so position sizes are deliberately smaller.
type Sentiment struct{}

func NewSentiment() *Sentiment { return &Sentiment{} }

func (s *Sentiment) Name() string { return "sentiment" }

const sentimentMinMentions = 5000

func (s *Sentiment) Analyze(ctx context.Context, snap *types.AnalysisSnapshot) ([]types.TradingSignal, error) {
	sd := snap.Sentiment
	price := snap.Market.Price
	if price <= 0 {
		return nil, nil
	}

	agreement := sourceAgreement(sd.SourceScores, sd.Score)

	if sd.Score > 0.6 && sd.MentionVolume > sentimentMinMentions && agreement > 0.5 {
		confidence := clampConfidence(0.5 + sd.Score*0.3 + agreement*0.1)
		return []types.TradingSignal{{
			ID:           newSignalID(s.Name()),
			Symbol:       snap.Symbol,
			Action:       types.ActionBuy,
			Confidence:   confidence,
			Reason:       fmt.Sprintf("Strong positive sentiment: score %.2f, %d mentions, %.0f%% source agreement", sd.Score, sd.MentionVolume, agreement*100),
			EntryPrice:   price,
			TargetPrice:  price * 1.04,
			StopLoss:     price * 0.97,
			PositionSize: 0.05,
			Strategy:     s.Name(),
			Timestamp:    time.Now(),
		}}, nil
	}

	if sd.Score < -0.6 && sd.MentionVolume > sentimentMinMentions {
		confidence := clampConfidence(0.5 + math.Abs(sd.Score)*0.3)
		return []types.TradingSignal{{
			ID:           newSignalID(s.Name()),
			Symbol:       snap.Symbol,
			Action:       types.ActionSell,
			Confidence:   confidence,
			Reason:       fmt.Sprintf("Strong negative sentiment: score %.2f with %d mentions", sd.Score, sd.MentionVolume),
			EntryPrice:   price,
			TargetPrice:  price * 0.96,
			StopLoss:     price * 1.03,
			PositionSize: 0.05,
			Strategy:     s.Name(),
			Timestamp:    time.Now(),
		}}, nil
	}

	return nil, nil
}

// sourceAgreement is the fraction of per-source scores whose sign matches
// the overall score.
func sourceAgreement(sources map[string]float64, overall float64) float64 {
	if len(sources) == 0 || overall == 0 {
		return 0
	}
	agreeing := 0
	for _, v := range sources {
		if (overall > 0 && v > 0) || (overall < 0 && v < 0) {
			agreeing++
		}
	}
	return float64(agreeing) / float64(len(sources))
}
