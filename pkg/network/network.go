// Package network implements a small multi-agent orchestrator. A Router picks
// the next agent after every turn, the chosen agent invokes exactly one tool,
// and the tool mutates run-scoped state. The loop is strictly serial and
// bounded by a maximum turn count.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxTurns bounds a run when Config.MaxTurns is not set.
const DefaultMaxTurns = 10

// Status is the state of a run.
type Status string

// Run states.
const (
	StatusRunning            Status = "running"
	StatusTerminatedSuccess  Status = "terminated_success"
	StatusTerminatedEmpty    Status = "terminated_empty"
	StatusTerminatedMaxTurns Status = "terminated_max_turns"
	StatusCancelled          Status = "cancelled"
)

// Outcome classifies a single tool invocation.
type Outcome string

// Tool invocation outcomes.
const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeAborted Outcome = "aborted"
)

// Config holds network construction parameters.
type Config struct {
	Name     string
	MaxTurns int
	Logger   *slog.Logger
}

// Turn records one router decision and the tool it led to.
type Turn struct {
	Number   int           `json:"number"`
	Agent    string        `json:"agent"`
	Tool     string        `json:"tool"`
	Outcome  Outcome       `json:"outcome"`
	Output   any           `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the final state of a run.
type Result[S State] struct {
	Status  Status `json:"status"`
	Turns   int    `json:"turns"`
	State   S      `json:"-"`
	History []Turn `json:"history"`
}

// Network drives the turn loop for a fixed set of agents.
type Network[S State] struct {
	name     string
	maxTurns int
	router   Router[S]
	agents   map[string]*Agent[S]
	logger   *slog.Logger
}

// New creates a network. Agent names must be unique.
func New[S State](cfg Config, router Router[S], agents ...*Agent[S]) (*Network[S], error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	if router == nil {
		return nil, fmt.Errorf("%w: router required", ErrRouter)
	}

	byName := make(map[string]*Agent[S], len(agents))
	for _, a := range agents {
		if _, ok := byName[a.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, a.Name)
		}
		byName[a.Name] = a
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Network[S]{
		name:     cfg.Name,
		maxTurns: maxTurns,
		router:   router,
		agents:   byName,
		logger:   logger.With("network", cfg.Name),
	}, nil
}

// MaxTurns returns the turn bound.
func (n *Network[S]) MaxTurns() int {
	return n.maxTurns
}

// Run executes the turn loop until the router ends the run, the turn bound is
// reached, the context is cancelled, or a tool aborts. The returned Result is
// non-nil whenever the loop started, including on error.
func (n *Network[S]) Run(ctx context.Context, task Task, state S) (*Result[S], error) {
	result := &Result[S]{
		Status: StatusRunning,
		State:  state,
	}

	for {
		if err := ctx.Err(); err != nil {
			result.Status = StatusCancelled
			return result, err
		}

		name, err := n.router.Route(task, state)
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrRouter, err)
		}

		if name == "" {
			result.Status = StatusTerminatedEmpty
			if state.Terminal() {
				result.Status = StatusTerminatedSuccess
			}
			n.logger.InfoContext(ctx, "run complete",
				"status", result.Status,
				"turns", result.Turns,
			)
			return result, nil
		}

		if result.Turns >= n.maxTurns {
			result.Status = StatusTerminatedMaxTurns
			n.logger.WarnContext(ctx, "turn limit reached",
				"max_turns", n.maxTurns,
				"next_agent", name,
			)
			return result, nil
		}

		agent, ok := n.agents[name]
		if !ok {
			return result, fmt.Errorf("%w: unknown agent %q", ErrRouter, name)
		}

		result.Turns++
		turn, err := n.turn(ctx, task, state, agent, result.Turns)
		result.History = append(result.History, turn)
		if err != nil {
			if ctx.Err() != nil {
				result.Status = StatusCancelled
			}
			return result, err
		}
	}
}

func (n *Network[S]) turn(ctx context.Context, task Task, state S, agent *Agent[S], number int) (Turn, error) {
	turn := Turn{Number: number, Agent: agent.Name}

	inv, err := agent.selectInvocation(task, state)
	if err != nil {
		return n.settle(ctx, state, turn, err)
	}
	turn.Tool = inv.Tool

	tool, ok := agent.tool(inv.Tool)
	if !ok {
		turn.Outcome = OutcomeAborted
		turn.Error = inv.Tool
		return turn, fmt.Errorf("%w: %s/%s", ErrUnknownTool, agent.Name, inv.Tool)
	}

	call := Call[S]{
		Task:  task,
		State: state,
		Agent: agent.Name,
		Tool:  tool.Name,
		Args:  inv.Args,
	}

	start := time.Now()
	output, err := invoke(ctx, tool, call)
	turn.Duration = time.Since(start)
	turn.Output = output

	return n.settle(ctx, state, turn, err)
}

func (n *Network[S]) settle(ctx context.Context, state S, turn Turn, err error) (Turn, error) {
	log := n.logger.With(
		"turn", turn.Number,
		"agent", turn.Agent,
		"tool", turn.Tool,
	)

	if err == nil {
		turn.Outcome = OutcomeOK
		log.InfoContext(ctx, "turn complete", "duration", turn.Duration)
		return turn, nil
	}

	turn.Error = err.Error()

	// A tool that fails because the run was cancelled or timed out aborts
	// the run, whatever it classified the error as.
	if ctxErr := ctx.Err(); ctxErr != nil {
		turn.Outcome = OutcomeAborted
		log.WarnContext(ctx, "turn interrupted", "error", err)
		return turn, fmt.Errorf("%w: %s/%s: %w (%v)", ErrToolAborted, turn.Agent, turn.Tool, ctxErr, err)
	}

	var te *ToolError
	if errors.As(err, &te) {
		turn.Outcome = OutcomeFailed
		state.Fail(Failure{
			Agent:   turn.Agent,
			Tool:    turn.Tool,
			Kind:    te.Kind,
			Err:     te.Err,
			Message: err.Error(),
		})
		log.WarnContext(ctx, "turn failed", "error", err)
		return turn, nil
	}

	turn.Outcome = OutcomeAborted
	log.ErrorContext(ctx, "turn aborted", "error", err)
	return turn, fmt.Errorf("%w: %s/%s: %w", ErrToolAborted, turn.Agent, turn.Tool, err)
}

func invoke[S State](ctx context.Context, tool Tool[S], call Call[S]) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Handler(ctx, call)
}
