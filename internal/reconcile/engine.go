// Package reconcile drives board moves: it computes the next order, publishes
// it to listeners straight away, persists it in the background one write at a
// time, and reloads the board from the remote store when any write fails.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/order"
)

const tracerName = "github.com/lherron/wrkboard/internal/reconcile"

var (
	// ErrNotLoaded is returned by HandleMove before Load or Seed.
	ErrNotLoaded = errors.New("no board loaded")
	// ErrClosed is returned once the engine is closed.
	ErrClosed = errors.New("engine closed")
)

// Remote is the authoritative store the engine persists to and reloads from.
type Remote interface {
	FetchBoard(ctx context.Context, boardUUID string) (*domain.Board, error)
	FetchColumns(ctx context.Context, boardUUID string) ([]domain.Column, error)
	UpdateColumnPosition(ctx context.Context, columnUUID string, position int) (*domain.Column, error)
	UpdateTask(ctx context.Context, taskUUID string, patch domain.TaskPatch) (*domain.Task, error)
}

// Listener receives every published snapshot. Listeners run synchronously
// while the engine holds its lock and must not call back into the engine.
type Listener func(order.Snapshot)

// QueuePolicy decides what happens to a move that arrives while another is
// still being persisted.
type QueuePolicy string

const (
	// QueueMoves persists later moves after the in-flight one.
	QueueMoves QueuePolicy = "queue"
	// RejectMoves refuses later moves with domain.ErrMoveInFlight.
	RejectMoves QueuePolicy = "reject"
)

// ParseQueuePolicy parses a policy name; empty means QueueMoves.
func ParseQueuePolicy(s string) (QueuePolicy, error) {
	switch QueuePolicy(s) {
	case "", QueueMoves:
		return QueueMoves, nil
	case RejectMoves:
		return RejectMoves, nil
	default:
		return "", fmt.Errorf("unknown queue policy %q (want queue or reject)", s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithNotifier sets where user-facing failures go. The default logs them.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithPersistPolicy selects which items are written after a move.
func WithPersistPolicy(p order.PersistPolicy) Option {
	return func(e *Engine) { e.persist = p }
}

// WithQueuePolicy selects how overlapping moves are handled.
func WithQueuePolicy(p QueuePolicy) Option {
	return func(e *Engine) { e.queue = p }
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// Engine owns the local state of one board. Moves on the board are
// single-flight: at most one persistence pass runs at a time.
type Engine struct {
	remote   Remote
	logger   *log.Logger
	notifier Notifier
	tracer   trace.Tracer
	persist  order.PersistPolicy
	queue    QueuePolicy

	mu        sync.Mutex
	local     order.Snapshot
	confirmed order.Snapshot
	loaded    bool
	closed    bool
	running   bool
	pending   []*job
	listeners map[int]Listener
	nextID    int
	wg        sync.WaitGroup
}

type job struct {
	ctx     context.Context
	receipt *Receipt
}

// New creates an engine persisting to remote.
func New(remote Remote, opts ...Option) *Engine {
	e := &Engine{
		remote:    remote,
		logger:    log.StandardLogger(),
		persist:   order.PersistAll,
		queue:     QueueMoves,
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.notifier == nil {
		e.notifier = LogNotifier{Logger: e.logger}
	}
	return e
}

// Load fetches the board and its columns and makes them the local state.
func (e *Engine) Load(ctx context.Context, boardUUID string) error {
	snap, err := e.fetch(ctx, boardUUID)
	if err != nil {
		return err
	}
	return e.Seed(snap)
}

// Seed makes snap the local and confirmed state without contacting the
// remote store. It fails while a persistence pass is in flight.
func (e *Engine) Seed(snap order.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.running {
		return domain.ErrMoveInFlight
	}
	if v := snap.Check(); len(v) > 0 {
		e.logger.WithFields(log.Fields{
			"board":      snap.BoardUUID(),
			"violations": len(v),
			"first":      v[0].String(),
		}).Warn("loaded board has ordering problems; the next move rewrites them")
	}

	e.local = snap.Clone()
	e.confirmed = e.local
	e.loaded = true
	e.publishLocked()
	return nil
}

// Snapshot returns a copy of the local, possibly optimistic, state.
func (e *Engine) Snapshot() order.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local.Clone()
}

// Confirmed returns a copy of the last state known to be persisted.
func (e *Engine) Confirmed() order.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmed.Clone()
}

// Subscribe registers l and returns a function that removes it.
func (e *Engine) Subscribe(l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// HandleMove applies ev to the local state, publishes the result, and
// schedules its persistence. Cancelled gestures and drops onto the original
// slot return an already resolved NoOp receipt. Malformed events return an
// *domain.InvalidMoveError and change nothing.
func (e *Engine) HandleMove(ctx context.Context, ev domain.MoveEvent) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if !e.loaded {
		return nil, ErrNotLoaded
	}

	m, err := e.local.Apply(ev)
	if err != nil {
		e.logger.WithFields(log.Fields{
			"board": e.local.BoardUUID(),
			"kind":  ev.Kind,
			"item":  ev.ItemUUID,
			"error": err,
		}).Debug("move dropped")
		return nil, err
	}
	if m.Noop {
		r := newReceipt(m, nil)
		r.resolve(NoOp, nil)
		return r, nil
	}
	if e.queue == RejectMoves && (e.running || len(e.pending) > 0) {
		return nil, domain.ErrMoveInFlight
	}

	writes := m.Plan(e.persist)
	r := newReceipt(m, writes)

	e.local = m.Next
	e.publishLocked()

	e.pending = append(e.pending, &job{ctx: context.WithoutCancel(ctx), receipt: r})
	if !e.running {
		e.running = true
		e.wg.Add(1)
		go e.drain()
	}

	e.logger.WithFields(log.Fields{
		"board":  e.local.BoardUUID(),
		"kind":   ev.Kind,
		"item":   ev.ItemUUID,
		"writes": len(writes),
	}).Debug("move applied locally")
	return r, nil
}

// Close stops accepting moves and waits for queued ones to finish.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}

// drain persists queued moves in arrival order until none are left.
func (e *Engine) drain() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		if len(e.pending) == 0 {
			e.running = false
			e.mu.Unlock()
			return
		}
		j := e.pending[0]
		e.pending = e.pending[1:]
		e.mu.Unlock()

		if err := e.persistMove(j.ctx, j.receipt); err != nil {
			e.recover(j, err)
			continue
		}

		e.mu.Lock()
		e.confirmed = j.receipt.Move.Next
		e.mu.Unlock()
		j.receipt.resolve(Applied, nil)
	}
}

// recover reloads the board after a failed write. Moves queued behind the
// failed one were computed from state that is being thrown away, so they
// are discarded rather than persisted.
func (e *Engine) recover(j *job, persistErr error) {
	board := j.receipt.Move.Next.Board
	boardUUID := board.UUID
	e.logger.WithFields(log.Fields{
		"board": boardUUID,
		"kind":  j.receipt.Move.Event.Kind,
		"item":  j.receipt.Move.Event.ItemUUID,
		"error": persistErr,
	}).Warn("move persistence failed; reloading board")

	snap, loadErr := e.reload(j.ctx, board)

	e.mu.Lock()
	discarded := e.pending
	e.pending = nil
	if loadErr == nil {
		e.local = snap
		e.confirmed = snap
	} else {
		e.local = e.confirmed
	}
	e.publishLocked()
	e.mu.Unlock()

	e.notifier.Notify(Notification{BoardUUID: boardUUID, Message: MessageMoveFailed, Err: persistErr})
	if loadErr != nil {
		e.notifier.Notify(Notification{BoardUUID: boardUUID, Message: MessageReloadFailed, Err: loadErr})
	}

	for _, d := range discarded {
		d.receipt.resolve(Discarded, persistErr)
	}
	j.receipt.resolve(RolledBack, persistErr)
}

func (e *Engine) publishLocked() {
	if len(e.listeners) == 0 {
		return
	}
	snap := e.local.Clone()
	for _, l := range e.listeners {
		l(snap)
	}
}
