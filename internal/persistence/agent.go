// Package persistence implements the agent that commits an extracted record
// to the expense store. The commit is a single conditional update, so
// repeated calls for the same expense file are safe: only the first one
// writes and emits a usage event.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/tally/internal/expenses"
	"github.com/JaimeStill/tally/internal/runstate"
	"github.com/JaimeStill/tally/internal/usage"
	"github.com/JaimeStill/tally/pkg/network"
)

const (
	AgentName = "persistence"
	ToolName  = "save-record"

	// AttrCorrelationID is the task attribute carrying the expense file ID.
	AttrCorrelationID = "correlation_id"
)

// ErrPersistenceFailed classifies store failures during save-record.
var ErrPersistenceFailed = errors.New("persistence failed")

// Config wires the agent's collaborators.
type Config struct {
	Expenses expenses.Completer
	Usage    usage.Sink
	Model    string
	Logger   *slog.Logger
}

// NewAgent builds the persistence agent. Its selector derives save-record
// arguments from the extracted record in run state.
func NewAgent(cfg Config) *network.Agent[*runstate.State] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t := &tool{
		expenses: cfg.Expenses,
		usage:    cfg.Usage,
		logger:   logger.With("agent", AgentName),
	}

	return &network.Agent[*runstate.State]{
		Name:        AgentName,
		Description: "Saves an extracted receipt record to the expense file it was uploaded as.",
		Model:       cfg.Model,
		Tools: []network.Tool[*runstate.State]{
			{
				Name:        ToolName,
				Description: "Commit merchant, transaction, and item details to the pending expense file.",
				Handler:     t.handle,
			},
		},
		Select: selectInvocation,
	}
}

func selectInvocation(task network.Task, state *runstate.State) (network.Invocation, error) {
	args, err := network.Args(ArgsFromRecord(task.Attr(AttrCorrelationID), state.Record))
	if err != nil {
		return network.Invocation{}, err
	}
	return network.Invocation{Tool: ToolName, Args: args}, nil
}

type tool struct {
	expenses expenses.Completer
	usage    usage.Sink
	logger   *slog.Logger
}

// Output reports the committed record for the turn history.
type Output struct {
	RecordID string `json:"record_id"`
	Applied  bool   `json:"applied"`
}

func (t *tool) handle(ctx context.Context, call network.Call[*runstate.State]) (any, error) {
	args, err := network.DecodeArgs[Args](call)
	if err != nil {
		return nil, err
	}
	if err := args.Validate(); err != nil {
		return nil, network.Fail(network.ErrInvalidArguments, fmt.Errorf("%s: %w", ToolName, err))
	}

	cmd, err := args.Command()
	if err != nil {
		return nil, network.Fail(network.ErrInvalidArguments, fmt.Errorf("%s: %w", ToolName, err))
	}

	completion, err := t.expenses.Complete(ctx, args.ExpenseFileID, cmd)
	if err != nil {
		return nil, network.Fail(ErrPersistenceFailed, err)
	}

	if completion.Applied {
		t.track(ctx, completion.File)
	} else {
		t.logger.InfoContext(ctx, "record already saved", "record_id", args.ExpenseFileID)
	}

	call.State.MarkSaved(args.ExpenseFileID)
	return Output{RecordID: args.ExpenseFileID, Applied: completion.Applied}, nil
}

// track emits the scan event. Failures are logged and never fail the save.
func (t *tool) track(ctx context.Context, f *expenses.ExpenseFile) {
	if t.usage == nil {
		return
	}

	err := t.usage.Track(ctx, usage.Event{
		Name:          usage.EventScan,
		OwnerID:       f.UserID,
		CorrelationID: f.ID,
	})
	if err != nil {
		t.logger.WarnContext(ctx, "usage tracking failed", "record_id", f.ID, "error", err)
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
