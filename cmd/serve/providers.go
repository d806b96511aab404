package serve

import (
	"github.com/sig-0/bnarates/cmd/common"
	"github.com/sig-0/bnarates/ingest"
)

// defaultProviders returns the scheduled scrape providers
func defaultProviders(rt *common.Runtime) []ingest.Provider {
	// Latest BNA sell rate, with the historical page as fallback if enabled
	yesterdayProvider := ingest.NewYesterdayProvider(
		rt.Orchestrator,
		rt.Config.Scrape.Interval(),
		rt.Config.Scrape.Fallback,
	)

	return []ingest.Provider{
		yesterdayProvider,
	}
}
