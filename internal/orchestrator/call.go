package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/relaydev/querydesk/internal/api"
)

// State is a lifecycle phase.
type State int

const (
	StateIdle State = iota
	StatePending
	StateSucceeded
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome describes how a call settled.
type Outcome struct {
	RequestID   string
	State       State // StateSucceeded, StateCancelled or StateFailed
	Result      *api.Result
	Message     string // notification text for cancelled and failed calls
	Status      int
	Err         error
	PromptBytes int
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
}

// Call is the cancellation token of one request. It settles exactly once.
type Call struct {
	id          string
	cancel      context.CancelFunc
	promptBytes int
	startedAt   time.Time

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newCall(id string, cancel context.CancelFunc, promptBytes int, startedAt time.Time) *Call {
	return &Call{
		id:          id,
		cancel:      cancel,
		promptBytes: promptBytes,
		startedAt:   startedAt,
		done:        make(chan struct{}),
	}
}

// ID is the request id sent as X-Request-ID.
func (c *Call) ID() string { return c.id }

// Done is closed once the call has settled.
func (c *Call) Done() <-chan struct{} { return c.done }

// Wait blocks until the call settles.
func (c *Call) Wait() Outcome {
	<-c.done
	return c.outcome
}

// Outcome returns the settled outcome, if any.
func (c *Call) Outcome() (Outcome, bool) {
	select {
	case <-c.done:
		return c.outcome, true
	default:
		return Outcome{}, false
	}
}

func (c *Call) outcomeBase(now time.Time) Outcome {
	return Outcome{
		RequestID:   c.id,
		PromptBytes: c.promptBytes,
		StartedAt:   c.startedAt,
		FinishedAt:  now,
		Duration:    now.Sub(c.startedAt),
	}
}

func (c *Call) settle(out Outcome) bool {
	settled := false
	c.once.Do(func() {
		c.outcome = out
		close(c.done)
		settled = true
	})
	return settled
}
