package network

import (
	"errors"
	"fmt"
)

// Sentinel errors for network operations.
var (
	ErrNoAgents         = errors.New("network requires at least one agent")
	ErrDuplicateAgent   = errors.New("duplicate agent name")
	ErrRouter           = errors.New("router error")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrToolAborted      = errors.New("tool aborted run")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ToolError is a classified tool failure. The network merges it into run
// state instead of aborting the run.
type ToolError struct {
	Kind error
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Fail classifies err under kind.
func Fail(kind, err error) error {
	return &ToolError{Kind: kind, Err: err}
}

// Failure is the structured record of a classified tool failure. Err keeps
// the tool's cause so callers can match store or source sentinels.
type Failure struct {
	Agent   string `json:"agent"`
	Tool    string `json:"tool"`
	Kind    error  `json:"-"`
	Err     error  `json:"-"`
	Message string `json:"message"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s/%s: %s", f.Agent, f.Tool, f.Message)
}

func (f Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}
