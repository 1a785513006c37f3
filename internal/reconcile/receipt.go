package reconcile

import (
	"context"
	"sync"

	"github.com/lherron/wrkboard/internal/order"
)

// Outcome is how a handled move finally resolved.
type Outcome int

const (
	// Pending means the move is still queued or being persisted.
	Pending Outcome = iota
	// Applied means every write succeeded; the optimistic state is final.
	Applied
	// NoOp means the move changed nothing and issued no writes.
	NoOp
	// RolledBack means a write failed and the board was reloaded.
	RolledBack
	// Discarded means an earlier move failed before this one was persisted.
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case NoOp:
		return "noop"
	case RolledBack:
		return "rolled_back"
	case Discarded:
		return "discarded"
	default:
		return "pending"
	}
}

// Receipt tracks one handled move until its persistence pass resolves.
type Receipt struct {
	Move   order.Move
	Writes []order.Write

	once    sync.Once
	done    chan struct{}
	outcome Outcome
	err     error
}

func newReceipt(m order.Move, writes []order.Write) *Receipt {
	return &Receipt{Move: m, Writes: writes, done: make(chan struct{})}
}

func (r *Receipt) resolve(outcome Outcome, err error) {
	r.once.Do(func() {
		r.outcome = outcome
		r.err = err
		close(r.done)
	})
}

// Done is closed once the outcome is known.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the move resolves or ctx ends. The error is the
// persistence failure for RolledBack moves and nil otherwise.
func (r *Receipt) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, r.err
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

// Outcome returns the current outcome without blocking.
func (r *Receipt) Outcome() Outcome {
	select {
	case <-r.done:
		return r.outcome
	default:
		return Pending
	}
}
