package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"crypto-trading-engine/internal/advisor"
	"crypto-trading-engine/internal/arbiter"
	"crypto-trading-engine/internal/engine"
	"crypto-trading-engine/internal/engine/engineobs"
	"crypto-trading-engine/internal/events"
	"crypto-trading-engine/internal/interfaces"
	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/marketdata"
	"crypto-trading-engine/internal/risk"
	"crypto-trading-engine/internal/sentiment"
	"crypto-trading-engine/internal/store"
	"crypto-trading-engine/internal/strategy"
	"crypto-trading-engine/internal/trace"
	"crypto-trading-engine/internal/tradelog"
	"crypto-trading-engine/internal/venue"
)

const stopTimeout = 30 * time.Second

type app struct {
	cfg    *store.Config
	engine interfaces.Engine
	bus    *events.Bus
}

// buildApp wires every collaborator from config, in the same order the
// engine consumes them: data in, signals, risk, execution, events out.
func buildApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	sentimentSvc := sentiment.NewService(sentiment.ServiceConfig{
		Enabled:       cfg.Sentiment.Enabled,
		MaxArticles:   cfg.Sentiment.MaxArticles,
		CacheDuration: time.Duration(cfg.Sentiment.CacheMinutes) * time.Minute,
		ScrapeTimeout: 10 * time.Second,
	})

	client := marketdata.NewClient(cfg.MarketData.BaseURL, time.Duration(cfg.MarketData.TimeoutSecond)*time.Second)
	provider := marketdata.NewProvider(client, sentimentSvc, cfg.MarketData.CandleLimit, time.Duration(cfg.MarketData.CacheSeconds)*time.Second)

	sinks := []events.Sink{events.NewLogSink()}
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaSink(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("connecting kafka sink: %w", err)
		}
		sinks = append(sinks, kafka)
	}
	bus := events.NewBus(256, sinks...)

	riskMgr := risk.NewManager(risk.Config{
		InitialCapital:   cfg.Risk.InitialCapital,
		MaxPositionSize:  cfg.Risk.MaxPositionSize,
		MaxDailyLoss:     cfg.Risk.MaxDailyLoss,
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
		StopLossPct:      cfg.Risk.StopLossPct,
		TakeProfitPct:    cfg.Risk.TakeProfitPct,
		SizingMethod:     cfg.Risk.SizingMethod,
		TrailingStop:     cfg.Risk.TrailingStop,
	})

	strategies := strategy.NewManager(
		strategy.NewMomentum(),
		strategy.NewMeanReversion(),
		strategy.NewSentiment(),
		strategy.NewConsensus(),
		strategy.NewVolatility(),
	)

	eng := engine.New(
		cfg,
		provider,
		advisor.New(cfg),
		venue.New(ctx, cfg),
		strategies,
		arbiter.New(cfg.Arbiter.MinConfidence),
		riskMgr,
		bus,
	)

	return &app{cfg: cfg, engine: engineobs.Wrap(eng), bus: bus}, nil
}

func (a *app) shutdown(ctx context.Context) {
	if err := a.bus.Close(ctx); err != nil {
		logger.Warn(ctx, "Event bus close failed", "error", err)
	}
	if err := trace.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "Trace shutdown failed", "error", err)
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the engine and trade until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
				var n int
				fmt.Sscanf(v, "%d", &n)
				_ = tradelog.CompressOlder(n)
			}

			a, err := buildApp(ctx, *configPath)
			if err != nil {
				return err
			}

			if err := a.engine.Start(ctx); err != nil {
				return err
			}

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigc
			logger.Info(ctx, "Shutdown signal received", "signal", sig.String())

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			a.engine.Stop(stopCtx)
			a.shutdown(stopCtx)
			return nil
		},
	}
}

func newOnceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single analysis cycle and print the resulting metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := buildApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.shutdown(context.Background())

			if err := a.engine.ForceAnalysisCycle(ctx); err != nil {
				return err
			}
			return printJSON(map[string]any{
				"metrics":   a.engine.RiskMetrics(),
				"positions": a.engine.Positions(),
				"trades":    a.engine.Trades(),
			})
		},
	}
}

func newMetricsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the risk metrics of a fresh ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.shutdown(context.Background())
			return printJSON(a.engine.RiskMetrics())
		},
	}
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
