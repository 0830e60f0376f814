package workflow

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/tally/internal/extraction"
	"github.com/JaimeStill/tally/internal/persistence"
	"github.com/JaimeStill/tally/pkg/network"
)

// Kind classifies why a pipeline run did not produce a record.
type Kind string

const (
	KindExtractionFailed   Kind = "ExtractionFailed"
	KindInvalidArguments   Kind = "InvalidArguments"
	KindPersistenceFailed  Kind = "PersistenceFailed"
	KindPipelineIncomplete Kind = "PipelineIncomplete"
	KindRouterError        Kind = "RouterError"
)

// Error is returned by Execute for every unsuccessful run.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Turns   int    `json:"turns_elapsed"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s after %d turns: %s", e.Kind, e.Turns, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err is not a workflow error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

func failureKind(f *network.Failure) Kind {
	switch {
	case errors.Is(f, extraction.ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(f, network.ErrInvalidArguments):
		return KindInvalidArguments
	case errors.Is(f, persistence.ErrPersistenceFailed):
		return KindPersistenceFailed
	}
	return KindPipelineIncomplete
}
