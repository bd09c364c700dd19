package testutil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/cacherestore/internal/canonical"
)

// Event is one write recorded by RecordingSink.
type Event struct {
	Kind  string // "output", "state" or "failed"
	Name  string
	Value string
}

func (e Event) String() string {
	if e.Kind == "failed" {
		return fmt.Sprintf("failed: %s", e.Value)
	}
	return fmt.Sprintf("%s %s=%s", e.Kind, e.Name, e.Value)
}

// RecordingSink implements restore.OutputSink and restore.StateSink and keeps
// every write in order. Values are stored the way a workflow file would hold
// them (canonical.CommandValue).
//
// FailOutput makes SetOutput fail for that output name; FailSignal makes
// SetFailed fail.
type RecordingSink struct {
	mu     sync.Mutex
	Events []Event

	FailOutput string
	FailSignal bool
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// SetOutput records an output.
func (s *RecordingSink) SetOutput(name string, value any) error {
	if name == s.FailOutput {
		return errors.New("output file is not writable")
	}
	v, err := canonical.CommandValue(value)
	if err != nil {
		return err
	}
	s.add(Event{Kind: "output", Name: name, Value: v})
	return nil
}

// SetState records a state value.
func (s *RecordingSink) SetState(name, value string) error {
	s.add(Event{Kind: "state", Name: name, Value: value})
	return nil
}

// SetFailed records the failure signal.
func (s *RecordingSink) SetFailed(message string) error {
	if s.FailSignal {
		return errors.New("stdout closed")
	}
	s.add(Event{Kind: "failed", Value: message})
	return nil
}

func (s *RecordingSink) add(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, e)
}

// Outputs returns the last value written for each output.
func (s *RecordingSink) Outputs() map[string]string {
	return s.last("output")
}

// States returns the last value written for each state name.
func (s *RecordingSink) States() map[string]string {
	return s.last("state")
}

// Failures returns the messages of all failure signals.
func (s *RecordingSink) Failures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.Events {
		if e.Kind == "failed" {
			out = append(out, e.Value)
		}
	}
	return out
}

// Transcript renders the event log one event per line.
func (s *RecordingSink) Transcript() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Events))
	for i, e := range s.Events {
		out[i] = e.String()
	}
	return out
}

func (s *RecordingSink) last(kind string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for _, e := range s.Events {
		if e.Kind == kind {
			out[e.Name] = e.Value
		}
	}
	return out
}
