package network

import (
	"context"
	"encoding/json"
	"fmt"
)

// State is the contract the network needs from run state. Implementations
// are owned by a single run and mutated only by the running turn.
type State interface {
	// Terminal reports whether the run reached its success marker.
	Terminal() bool
	// Fail records a classified tool failure.
	Fail(f Failure)
}

// Call is a single tool invocation as seen by the handler.
type Call[S State] struct {
	Task  Task
	State S
	Agent string
	Tool  string
	Args  json.RawMessage
}

// ToolFunc handles a tool call. Returning an error created with Fail keeps
// the run alive; any other error aborts it.
type ToolFunc[S State] func(ctx context.Context, call Call[S]) (any, error)

// Tool is a named, described capability with a handler.
type Tool[S State] struct {
	Name        string
	Description string
	Handler     ToolFunc[S]
}

// Invocation is an agent's choice of tool and arguments for one turn.
type Invocation struct {
	Tool string
	Args json.RawMessage
}

// Selector picks the tool and arguments an agent invokes on its turn.
type Selector[S State] func(task Task, state S) (Invocation, error)

// Agent is a stateless participant: a fixed model reference and a set of
// tools. All mutable context flows through run state and tool arguments.
type Agent[S State] struct {
	Name        string
	Description string
	Model       string
	Tools       []Tool[S]
	Select      Selector[S]
}

func (a *Agent[S]) tool(name string) (Tool[S], bool) {
	for _, t := range a.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool[S]{}, false
}

func (a *Agent[S]) selectInvocation(task Task, state S) (Invocation, error) {
	if a.Select != nil {
		return a.Select(task, state)
	}
	if len(a.Tools) == 1 {
		return Invocation{Tool: a.Tools[0].Name, Args: json.RawMessage("{}")}, nil
	}
	return Invocation{}, fmt.Errorf("agent %s has no selector for %d tools", a.Name, len(a.Tools))
}

// Args marshals v into tool arguments.
func Args(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	return data, nil
}

// DecodeArgs unmarshals the call arguments into T. Malformed arguments are
// classified as ErrInvalidArguments.
func DecodeArgs[T any, S State](call Call[S]) (T, error) {
	var args T
	if len(call.Args) == 0 {
		return args, Fail(ErrInvalidArguments, fmt.Errorf("%s: no arguments", call.Tool))
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return args, Fail(ErrInvalidArguments, fmt.Errorf("%s: %w", call.Tool, err))
	}
	return args, nil
}
