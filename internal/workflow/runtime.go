package workflow

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/JaimeStill/tally/internal/expenses"
	"github.com/JaimeStill/tally/internal/extraction"
	"github.com/JaimeStill/tally/internal/persistence"
	"github.com/JaimeStill/tally/internal/runstate"
	"github.com/JaimeStill/tally/internal/usage"
	"github.com/JaimeStill/tally/pkg/network"
)

// Runtime bundles the dependencies a pipeline run requires. It is
// constructed by higher-level composition code from Infrastructure and
// Domain systems and must not be copied after first use.
type Runtime struct {
	MaxTurns int
	Model    string
	Source   extraction.Source
	Backend  extraction.Backend
	Expenses expenses.Completer
	// Status, when set, marks files whose run failed for good as errored.
	Status  expenses.StatusUpdater
	Usage   usage.Sink
	Metrics *Metrics
	Logger  *slog.Logger

	once   sync.Once
	net    *network.Network[*runstate.State]
	netErr error
	flight singleflight.Group
}

func (rt *Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return rt.Logger
}

func (rt *Runtime) network() (*network.Network[*runstate.State], error) {
	rt.once.Do(func() {
		logger := rt.logger().With("system", "workflow")

		extract := extraction.NewAgent(extraction.Config{
			Source:  rt.Source,
			Backend: rt.Backend,
			Model:   rt.Model,
			Logger:  logger,
		})

		persist := persistence.NewAgent(persistence.Config{
			Expenses: rt.Expenses,
			Usage:    rt.Usage,
			Model:    rt.Model,
			Logger:   logger,
		})

		rt.net, rt.netErr = network.New(
			network.Config{Name: "tally-receipts", MaxTurns: rt.MaxTurns, Logger: logger},
			Router,
			extract,
			persist,
		)
	})
	return rt.net, rt.netErr
}
