package advisor

import (
	"strings"

	"crypto-trading-engine/internal/advisor/advisorobs"
	"crypto-trading-engine/internal/interfaces"
	"crypto-trading-engine/internal/store"
)

// New selects the advisory provider from config and wraps it with
// observability middleware.
func New(cfg *store.Config) interfaces.Advisor {
	var a interfaces.Advisor
	switch strings.ToUpper(cfg.Advisor.Provider) {
	case "OPENAI":
		a = NewOpenAIAdvisor(cfg)
	default:
		a = NewNoopAdvisor()
	}
	return advisorobs.Wrap(a)
}
