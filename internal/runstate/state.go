// Package runstate holds the run-scoped key/value store shared by the agents
// of one pipeline run. The keys the pipeline depends on are typed fields; any
// other key lands in an open bag. A State is owned by exactly one run and is
// not safe for concurrent use.
package runstate

import (
	"errors"
	"fmt"
	"maps"

	"github.com/JaimeStill/tally/internal/receipts"
	"github.com/JaimeStill/tally/pkg/network"
)

// Reserved keys.
const (
	KeySaved   = "saved-to-db"
	KeyReceipt = "receipt"
	KeyRecord  = "record"
)

var ErrInvalidValue = errors.New("invalid state value")

// State is the run state. The zero value is ready to use.
type State struct {
	Saved   bool
	Receipt string
	Record  *receipts.Record
	Failure *network.Failure

	bag map[string]any
}

// New returns an empty run state.
func New() *State {
	return &State{}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	switch key {
	case KeySaved:
		return s.Saved, s.Saved
	case KeyReceipt:
		return s.Receipt, s.Receipt != ""
	case KeyRecord:
		return s.Record, s.Record != nil
	}
	v, ok := s.bag[key]
	return v, ok
}

// Set stores value under key. Reserved keys only accept their typed value.
func (s *State) Set(key string, value any) error {
	switch key {
	case KeySaved:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s expects bool, got %T", ErrInvalidValue, key, value)
		}
		s.Saved = v
	case KeyReceipt:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s expects string, got %T", ErrInvalidValue, key, value)
		}
		s.Receipt = v
	case KeyRecord:
		v, ok := value.(*receipts.Record)
		if !ok {
			return fmt.Errorf("%w: %s expects *receipts.Record, got %T", ErrInvalidValue, key, value)
		}
		s.Record = v
	default:
		if s.bag == nil {
			s.bag = make(map[string]any)
		}
		s.bag[key] = value
	}
	return nil
}

// Terminal reports whether the persistence step committed the record.
func (s *State) Terminal() bool {
	return s.Saved
}

// MarkSaved sets the terminal marker and the committed record ID.
func (s *State) MarkSaved(receipt string) {
	s.Saved = true
	s.Receipt = receipt
}

// SetRecord stores the extracted record.
func (s *State) SetRecord(r *receipts.Record) {
	s.Record = r
}

// Fail records the first classified failure of the run. Later failures are
// ignored so the earliest cause is reported.
func (s *State) Fail(f network.Failure) {
	if s.Failure != nil {
		return
	}
	s.Failure = &f
}

// Failed reports whether a failure was recorded.
func (s *State) Failed() bool {
	return s.Failure != nil
}

// Snapshot returns a copy of the state for logs and diagnostics.
func (s *State) Snapshot() map[string]any {
	out := maps.Clone(s.bag)
	if out == nil {
		out = make(map[string]any, 4)
	}
	out[KeySaved] = s.Saved
	if s.Receipt != "" {
		out[KeyReceipt] = s.Receipt
	}
	if s.Record != nil {
		out[KeyRecord] = s.Record
	}
	if s.Failure != nil {
		out["failure"] = s.Failure.Error()
	}
	return out
}
