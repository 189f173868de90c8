// Package orchestrator owns the lifecycle of a single outbound query: at most
// one request is in flight, it can be cancelled, and only the live request may
// publish a result.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/relaydev/querydesk/internal/api"
)

const (
	MsgCancelled = "Request cancelled."
	MsgUnknown   = "An unexpected error occurred."
	MsgMalformed = "Request failed: malformed response"
	MsgTimeout   = "Request failed: timed out"
)

// Querier performs the remote call. *api.Client satisfies it.
type Querier interface {
	Query(ctx context.Context, prompt, requestID string) (api.Result, error)
}

// Recorder observes settled calls.
type Recorder interface {
	Record(Outcome) error
}

// Snapshot is the view state derived from the lifecycle record.
type Snapshot struct {
	State     State
	Loading   bool
	Result    *api.Result
	RequestID string
}

// Orchestrator tracks the single in-flight call and the latest result.
type Orchestrator struct {
	q        Querier
	log      *slog.Logger
	recorder Recorder
	newID    func() string
	now      func() time.Time

	mu     sync.Mutex
	state  State
	result *api.Result
	call   *Call
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithIDFunc(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(q Querier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		q:     q,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID: uuid.NewString,
		now:   time.Now,
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit starts a request for prompt. It returns false without calling the
// service when prompt is blank or a request is already pending.
func (o *Orchestrator) Submit(ctx context.Context, prompt string) (*Call, bool) {
	if strings.TrimSpace(prompt) == "" {
		return nil, false
	}

	o.mu.Lock()
	if live := o.call; live != nil {
		o.mu.Unlock()
		o.log.Debug("submit ignored, request pending", "request_id", live.id)
		return nil, false
	}
	callCtx, cancel := context.WithCancel(ctx)
	call := newCall(o.newID(), cancel, len(prompt), o.now())
	o.call = call
	o.state = StatePending
	o.result = nil
	o.mu.Unlock()

	o.log.Info("request started", "request_id", call.id, "prompt_bytes", call.promptBytes)
	go o.run(callCtx, call, prompt)
	return call, true
}

// Cancel aborts the pending request. It returns false when nothing is pending.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	call := o.call
	if call == nil {
		o.mu.Unlock()
		return false
	}
	o.call = nil
	o.state = StateIdle
	o.result = nil
	o.mu.Unlock()

	out := call.outcomeBase(o.now())
	out.State = StateCancelled
	out.Message = MsgCancelled
	o.finish(call, out)
	return true
}

// Snapshot returns the current view state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{State: o.state, Loading: o.state == StatePending, Result: o.result}
	if o.call != nil {
		s.RequestID = o.call.id
	}
	return s
}

// Pending reports whether a request is in flight.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.call != nil
}

func (o *Orchestrator) run(ctx context.Context, call *Call, prompt string) {
	res, err := o.q.Query(ctx, prompt, call.id)
	o.settle(call, res, err)
}

func (o *Orchestrator) settle(call *Call, res api.Result, err error) {
	o.mu.Lock()
	if o.call != call {
		o.mu.Unlock()
		o.log.Debug("stale response dropped", "request_id", call.id)
		return
	}
	o.call = nil

	out := call.outcomeBase(o.now())
	switch {
	case err == nil:
		r := res
		o.state = StateSucceeded
		o.result = &r
		out.State = StateSucceeded
		out.Result = &r
		out.Status = res.Status
	case errors.Is(err, context.Canceled):
		o.state = StateIdle
		out.State = StateCancelled
		out.Message = MsgCancelled
	default:
		o.state = StateFailed
		out.State = StateFailed
		out.Err = err
		out.Message, out.Status = failureMessage(err)
	}
	o.mu.Unlock()

	o.finish(call, out)
}

// finish runs once per call. Cancel and settle both detach the call under the
// lock first; whichever finds it still live owns it and is the only caller.
// The loser returns before touching the call.
func (o *Orchestrator) finish(call *Call, out Outcome) {
	call.cancel()

	attrs := []any{"request_id", out.RequestID, "outcome", out.State.String(), "duration", out.Duration}
	switch out.State {
	case StateFailed:
		o.log.Error("request failed", append(attrs, "status", out.Status, "err", out.Err)...)
	case StateCancelled:
		o.log.Info("request cancelled", attrs...)
	default:
		o.log.Info("request settled", append(attrs, "kind", string(out.Result.Kind))...)
	}

	if o.recorder != nil {
		if err := o.recorder.Record(out); err != nil {
			o.log.Warn("record outcome", "request_id", out.RequestID, "err", err)
		}
	}
	call.settle(out)
}

func failureMessage(err error) (string, int) {
	var se *api.StatusError
	var re *api.ResponseError
	switch {
	case errors.As(err, &se):
		return se.Error(), se.Status
	case errors.As(err, &re):
		return MsgMalformed, re.Status
	case errors.Is(err, api.ErrMalformedResponse):
		return MsgMalformed, 0
	case errors.Is(err, api.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return MsgTimeout, 0
	}
	if msg := err.Error(); msg != "" {
		return capitalize(msg), 0
	}
	return MsgUnknown, 0
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
