package venue

import (
	"context"
	"os"

	"crypto-trading-engine/internal/interfaces"
	"crypto-trading-engine/internal/logger"
	"crypto-trading-engine/internal/store"
	"crypto-trading-engine/internal/venue/venueobs"
)

// New returns the venue for the configured mode, wrapped with observability
// middleware. PAPER never performs network I/O.
func New(ctx context.Context, cfg *store.Config) interfaces.Venue {
	var v interfaces.Venue
	if cfg.Mode == "LIVE" {
		logger.Warn(ctx, "LIVE mode: orders will be submitted to the execution venue", "base_url", cfg.Venue.BaseURL)
		v = NewRESTVenue(cfg.Venue.BaseURL, os.Getenv("VENUE_API_KEY"))
	} else {
		logger.Info(ctx, "PAPER mode: fills are simulated locally")
		v = NewPaperVenue(cfg.Venue.FeeRate, cfg.Venue.SlippageBps)
	}
	return venueobs.Wrap(v)
}
