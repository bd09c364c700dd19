package actions

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/roach88/cacherestore/internal/canonical"
	"github.com/roach88/cacherestore/internal/config"
)

// Runner-provided variables.
const (
	EnvOutput    = "GITHUB_OUTPUT"
	EnvState     = "GITHUB_STATE"
	EnvRef       = "GITHUB_REF"
	EnvEventName = "GITHUB_EVENT_NAME"
)

// Workflow writes outputs, state and the failure signal for one step.
type Workflow struct {
	env          config.Env
	out          io.Writer
	newDelimiter func() string

	mu     sync.Mutex
	failed bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithDelimiter overrides the heredoc delimiter generator.
func WithDelimiter(gen func() string) Option {
	return func(w *Workflow) {
		w.newDelimiter = gen
	}
}

// NewWorkflow creates a Workflow reading file locations from env and writing
// workflow commands to out.
func NewWorkflow(env config.Env, out io.Writer, opts ...Option) *Workflow {
	w := &Workflow{
		env: env,
		out: out,
		newDelimiter: func() string {
			return "ghadelimiter_" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetOutput records a step output. Non-string values are written as
// canonical JSON.
func (w *Workflow) SetOutput(name string, value any) error {
	v, err := canonical.CommandValue(value)
	if err != nil {
		return fmt.Errorf("set output %s: %w", name, err)
	}
	if path := w.env.Get(EnvOutput); path != "" {
		return w.appendFileCommand(path, name, v)
	}
	return w.issue("set-output", name, v)
}

// SetState records a value for the post phase of the step.
func (w *Workflow) SetState(name, value string) error {
	if path := w.env.Get(EnvState); path != "" {
		return w.appendFileCommand(path, name, value)
	}
	return w.issue("save-state", name, value)
}

// SetFailed emits the failure signal. It can be called more than once; each
// call emits one ::error:: command.
func (w *Workflow) SetFailed(message string) error {
	w.mu.Lock()
	w.failed = true
	w.mu.Unlock()

	_, err := fmt.Fprintf(w.out, "::error::%s\n", escapeData(message))
	return err
}

// Failed reports whether SetFailed was called.
func (w *Workflow) Failed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failed
}

func (w *Workflow) issue(command, name, value string) error {
	_, err := fmt.Fprintf(w.out, "::%s name=%s::%s\n", command, escapeProperty(name), escapeData(value))
	return err
}

func (w *Workflow) appendFileCommand(path, name, value string) error {
	delimiter := w.newDelimiter()
	if strings.Contains(name, delimiter) {
		return fmt.Errorf("unexpected input: name should not contain the delimiter %q", delimiter)
	}
	if strings.Contains(value, delimiter) {
		return fmt.Errorf("unexpected input: value should not contain the delimiter %q", delimiter)
	}
	record := fmt.Sprintf("%s<<%s\n%s\n%s\n", name, delimiter, value, delimiter)

	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(record); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

func escapeProperty(s string) string {
	s = escapeData(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	return strings.ReplaceAll(s, ",", "%2C")
}
