package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/adamancini/betterfox-updater/internal/types"
)

// ErrBusy is returned by Start while another operation is running.
var ErrBusy = errors.New("another operation is already running")

// DefaultBuffer is the capacity of a run's event channel.
const DefaultBuffer = 64

// Operation is a unit of work run by the Dispatcher.
type Operation func(ctx context.Context, r Reporter) Result

// Run is a started operation.
type Run struct {
	ID     string
	Events <-chan Event

	done   chan struct{}
	result Result
}

// Wait blocks until the operation returns. The caller must keep draining
// Events, which is bounded.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Dispatcher runs at most one operation at a time on a background goroutine.
type Dispatcher struct {
	busy   atomic.Bool
	buffer int
	now    func() time.Time
}

// NewDispatcher creates an idle dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{buffer: DefaultBuffer, now: time.Now}
}

// WithBuffer sets the event channel capacity.
func (d *Dispatcher) WithBuffer(n int) *Dispatcher {
	if n > 0 {
		d.buffer = n
	}
	return d
}

// Busy reports whether an operation is running.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Start runs op in the background. The returned run emits busy=true first
// and busy=false last, then closes its channel. A panic inside op ends the
// run with an update error.
func (d *Dispatcher) Start(ctx context.Context, op Operation) (*Run, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	events := make(chan Event, d.buffer)
	run := &Run{
		ID:     uuid.NewString(),
		Events: events,
		done:   make(chan struct{}),
	}
	rep := &channelReporter{runID: run.ID, ch: events, now: d.now}

	go func() {
		defer func() {
			if p := recover(); p != nil {
				rep.Log(fmt.Sprintf("%sInternal error: %v", MarkErr, p))
				rep.Status(types.StatusUpdateError, types.PhaseError)
				run.result = Result{}.fail(OutcomeFailed, types.StatusUpdateError, fmt.Errorf("operation panicked: %v", p))
			}
			d.busy.Store(false)
			rep.busy(false)
			close(events)
			close(run.done)
		}()

		rep.busy(true)
		run.result = op(ctx, rep)
	}()

	return run, nil
}
