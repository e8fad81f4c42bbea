// Package runs tracks background discovery and dispatch runs: at most one
// active run per kind, with cooperative cancellation and a bounded log
// buffer the control surface polls.
package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Kind names a run flavor. One run of each kind may be active at a time.
type Kind string

const (
	KindDiscover Kind = "discover"
	KindDispatch Kind = "dispatch"
)

// ErrBusy rejects a start request while a run of the same kind is active.
var ErrBusy = errors.New("runs: a run of this kind is already active")

const defaultMaxLines = 500

// Run is one background execution. Its log buffer is safe for concurrent
// append and read.
type Run struct {
	ID        string
	Kind      Kind
	StartedAt time.Time

	cancel context.CancelFunc

	mu       sync.Mutex
	lines    []string
	maxLines int
	done     bool
	err      error
}

// Log appends a timestamped line, evicting the oldest when the buffer is
// full.
func (r *Run) Log(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamped := fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), line)
	r.lines = append(r.lines, stamped)
	if len(r.lines) > r.maxLines {
		r.lines = r.lines[len(r.lines)-r.maxLines:]
	}
}

// Lines returns a copy of the buffered log lines.
func (r *Run) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Stop requests cooperative cancellation.
func (r *Run) Stop() {
	r.cancel()
}

// Done reports whether the run has finished.
func (r *Run) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns the run's terminal error, nil while running or on success.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Run) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	r.err = err
}

// Logger tees base through the run's log buffer so the control surface can
// replay what the engine logged.
func (r *Run) Logger(base *zap.Logger) *zap.Logger {
	return base.WithOptions(zap.Hooks(func(e zapcore.Entry) error {
		r.Log(e.Message)
		return nil
	}))
}

// Registry owns the active and most recent run per kind.
type Registry struct {
	mu     sync.Mutex
	active map[Kind]*Run
	last   map[Kind]*Run
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[Kind]*Run),
		last:   make(map[Kind]*Run),
	}
}

// Start acquires the slot for kind and launches fn on a background
// goroutine. It fails fast with ErrBusy when a run of that kind is still
// active; it never queues.
func (g *Registry) Start(parent context.Context, kind Kind, fn func(ctx context.Context, run *Run) error) (*Run, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if current, ok := g.active[kind]; ok && !current.Done() {
		return nil, ErrBusy
	}

	ctx, cancel := context.WithCancel(parent)
	run := &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now(),
		cancel:    cancel,
		maxLines:  defaultMaxLines,
	}
	g.active[kind] = run
	g.last[kind] = run

	go func() {
		defer cancel()
		err := fn(ctx, run)
		run.finish(err)
		g.mu.Lock()
		if g.active[kind] == run {
			delete(g.active, kind)
		}
		g.mu.Unlock()
	}()
	return run, nil
}

// Stop cancels the active run of kind, reporting whether one was active.
func (g *Registry) Stop(kind Kind) bool {
	g.mu.Lock()
	run, ok := g.active[kind]
	g.mu.Unlock()
	if !ok || run.Done() {
		return false
	}
	run.Stop()
	return true
}

// Status returns whether a run of kind is active, plus the log lines of the
// active or most recent run.
func (g *Registry) Status(kind Kind) (running bool, lines []string) {
	g.mu.Lock()
	run, active := g.active[kind]
	if !active {
		run = g.last[kind]
	}
	g.mu.Unlock()
	if run == nil {
		return false, nil
	}
	return active && !run.Done(), run.Lines()
}
