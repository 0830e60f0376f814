package runstate_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/tally/internal/receipts"
	"github.com/JaimeStill/tally/internal/runstate"
	"github.com/JaimeStill/tally/pkg/network"
)

var errKind = errors.New("kind")

func TestTerminalIsExplicitBoolean(t *testing.T) {
	s := runstate.New()
	if s.Terminal() {
		t.Fatal("new state should not be terminal")
	}

	if err := s.Set(runstate.KeySaved, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s.Terminal() {
		t.Error("saved-to-db=false must not be terminal")
	}

	s.MarkSaved("rec_1")
	if !s.Terminal() {
		t.Error("state should be terminal after MarkSaved")
	}
	if v, _ := s.Get(runstate.KeyReceipt); v != "rec_1" {
		t.Errorf("receipt = %v, want rec_1", v)
	}
}

func TestSetReservedKeys(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr bool
	}{
		{"saved bool", runstate.KeySaved, true, false},
		{"saved string", runstate.KeySaved, "true", true},
		{"receipt string", runstate.KeyReceipt, "rec_1", false},
		{"receipt int", runstate.KeyReceipt, 1, true},
		{"record pointer", runstate.KeyRecord, &receipts.Record{}, false},
		{"record value", runstate.KeyRecord, receipts.Record{}, true},
		{"bag", "attempts", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runstate.New().Set(tt.key, tt.value)
			if tt.wantErr && !errors.Is(err, runstate.ErrInvalidValue) {
				t.Errorf("err = %v, want ErrInvalidValue", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected err: %v", err)
			}
		})
	}
}

func TestBagRoundTrip(t *testing.T) {
	s := runstate.New()
	if _, ok := s.Get("note"); ok {
		t.Fatal("absent key reported present")
	}
	if err := s.Set("note", "hello"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok := s.Get("note"); !ok || v != "hello" {
		t.Errorf("get = %v, %v", v, ok)
	}
}

func TestFailKeepsFirst(t *testing.T) {
	s := runstate.New()
	s.Fail(network.Failure{Agent: "a", Tool: "t1", Kind: errKind, Message: "first"})
	s.Fail(network.Failure{Agent: "a", Tool: "t2", Kind: errKind, Message: "second"})

	if !s.Failed() {
		t.Fatal("Failed = false")
	}
	if s.Failure.Message != "first" {
		t.Errorf("message = %q, want first", s.Failure.Message)
	}
	if s.Terminal() {
		t.Error("failure must not set the terminal marker")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s := runstate.New()
	_ = s.Set("k", "v")
	s.SetRecord(&receipts.Record{})

	snap := s.Snapshot()
	snap["k"] = "changed"

	if v, _ := s.Get("k"); v != "v" {
		t.Errorf("state mutated through snapshot: %v", v)
	}
	if _, ok := snap[runstate.KeyRecord]; !ok {
		t.Error("snapshot missing record")
	}
	if snap[runstate.KeySaved] != false {
		t.Errorf("snapshot saved = %v", snap[runstate.KeySaved])
	}
}
