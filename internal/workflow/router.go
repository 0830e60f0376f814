package workflow

import (
	"github.com/JaimeStill/tally/internal/extraction"
	"github.com/JaimeStill/tally/internal/persistence"
	"github.com/JaimeStill/tally/internal/runstate"
	"github.com/JaimeStill/tally/pkg/network"
)

// Route picks the next agent from run state alone:
//
//	saved             -> stop
//	failure recorded  -> stop
//	record extracted  -> persistence
//	otherwise         -> extraction
//
// Stopping on failure keeps a rejected save from being retried in a loop.
func Route(_ network.Task, s *runstate.State) (string, error) {
	switch {
	case s.Terminal():
		return "", nil
	case s.Failed():
		return "", nil
	case s.Record != nil:
		return persistence.AgentName, nil
	default:
		return extraction.AgentName, nil
	}
}

// Router is Route as a network.Router.
var Router network.Router[*runstate.State] = network.RouterFunc[*runstate.State](Route)
