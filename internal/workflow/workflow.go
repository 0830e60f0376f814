// Package workflow runs the receipt pipeline: the extraction agent reads a
// document into a record, the persistence agent commits it, and a pure
// router sequences them until the record is saved or a failure is recorded.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/tally/internal/expenses"
	"github.com/JaimeStill/tally/internal/extraction"
	"github.com/JaimeStill/tally/internal/persistence"
	"github.com/JaimeStill/tally/internal/runstate"
	"github.com/JaimeStill/tally/pkg/network"
)

// Result is a successful run.
type Result struct {
	RecordID string         `json:"record_id"`
	Turns    int            `json:"turns"`
	History  []network.Turn `json:"history,omitempty"`
}

// Execute runs the pipeline for one document and returns the committed
// record ID. Every failure is a *Error. Concurrent calls with the same
// correlation ID in this process share a single run.
func Execute(ctx context.Context, rt *Runtime, documentURL, correlationID string) (*Result, error) {
	documentURL = strings.TrimSpace(documentURL)
	correlationID = strings.TrimSpace(correlationID)

	if documentURL == "" || correlationID == "" {
		return nil, &Error{
			Kind:    KindInvalidArguments,
			Message: "document url and correlation id are required",
		}
	}

	v, err, shared := rt.flight.Do(correlationID, func() (any, error) {
		return run(ctx, rt, documentURL, correlationID)
	})
	if shared {
		rt.logger().InfoContext(ctx, "joined in-flight run", "correlation_id", correlationID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func describe(documentURL, correlationID string) string {
	return fmt.Sprintf(
		"Extract the receipt at %s and save it to expense file %s.",
		documentURL, correlationID,
	)
}

func run(ctx context.Context, rt *Runtime, documentURL, correlationID string) (*Result, error) {
	net, err := rt.network()
	if err != nil {
		return nil, &Error{Kind: KindPipelineIncomplete, Message: err.Error(), Err: err}
	}

	logger := rt.logger().With("system", "workflow", "correlation_id", correlationID)

	task := network.NewTask(
		describe(documentURL, correlationID),
		network.Attr{Key: extraction.AttrDocumentURL, Value: documentURL},
		network.Attr{Key: persistence.AttrCorrelationID, Value: correlationID},
	)
	state := runstate.New()

	start := time.Now()
	res, runErr := net.Run(ctx, task, state)
	elapsed := time.Since(start)

	result, err := settle(res, state, runErr)
	rt.Metrics.observe(res.Status, KindOf(err), res.History, elapsed)

	if err != nil {
		logger.WarnContext(ctx, "pipeline run failed",
			"status", res.Status,
			"turns", res.Turns,
			"error", err,
			"state", state.Snapshot(),
		)
		markFailed(ctx, rt, correlationID, err, logger)
		return nil, err
	}

	logger.InfoContext(ctx, "pipeline run complete",
		"record_id", result.RecordID,
		"turns", result.Turns,
		"duration", elapsed,
	)
	return result, nil
}

// markFailed records a run that cannot succeed on retry as errored. Runs
// that were cut short, or whose file is missing or no longer pending, leave
// the file as it is.
func markFailed(ctx context.Context, rt *Runtime, id string, err error, logger *slog.Logger) {
	if rt.Status == nil || !Terminal(err) {
		return
	}

	if _, uerr := rt.Status.UpdateStatus(ctx, id, expenses.StatusError); uerr != nil {
		logger.WarnContext(ctx, "mark expense file errored failed", "error", uerr)
		return
	}
	rt.Metrics.failed()
}

// Terminal reports whether err ends processing of its file. Extraction,
// argument, and store failures are terminal unless the file is missing or
// has already left pending.
func Terminal(err error) bool {
	switch KindOf(err) {
	case KindExtractionFailed, KindInvalidArguments, KindPersistenceFailed:
		return !errors.Is(err, expenses.ErrNotFound) && !errors.Is(err, expenses.ErrNotPending)
	}
	return false
}

func settle(res *network.Result[*runstate.State], state *runstate.State, runErr error) (*Result, error) {
	if runErr != nil {
		kind := KindPipelineIncomplete
		if errors.Is(runErr, network.ErrRouter) {
			kind = KindRouterError
		}
		return nil, &Error{Kind: kind, Message: runErr.Error(), Turns: res.Turns, Err: runErr}
	}

	if state.Failure != nil {
		return nil, &Error{
			Kind:    failureKind(state.Failure),
			Message: state.Failure.Message,
			Turns:   res.Turns,
			Err:     state.Failure,
		}
	}

	if res.Status != network.StatusTerminatedSuccess || state.Receipt == "" {
		return nil, &Error{
			Kind:    KindPipelineIncomplete,
			Message: fmt.Sprintf("run ended with status %s", res.Status),
			Turns:   res.Turns,
		}
	}

	return &Result{
		RecordID: state.Receipt,
		Turns:    res.Turns,
		History:  res.History,
	}, nil
}
