package reconcile

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/order"
)

// persistMove sends the receipt's writes one at a time, in plan order, and
// stops at the first failure. Writes that already succeeded are not undone.
func (e *Engine) persistMove(ctx context.Context, r *Receipt) error {
	ev := r.Move.Event
	ctx, span := e.tracer.Start(ctx, "reconcile.persist", trace.WithAttributes(
		attribute.String("board.uuid", r.Move.Next.BoardUUID()),
		attribute.String("move.kind", string(ev.Kind)),
		attribute.String("move.item", ev.ItemUUID),
		attribute.Int("move.writes", len(r.Writes)),
	))
	defer span.End()

	for i, w := range r.Writes {
		if err := e.write(ctx, w); err != nil {
			span.SetAttributes(attribute.Int("move.failed_write", i))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	span.SetStatus(codes.Ok, "")
	e.logger.WithFields(log.Fields{
		"board":  r.Move.Next.BoardUUID(),
		"kind":   ev.Kind,
		"item":   ev.ItemUUID,
		"writes": len(r.Writes),
	}).Info("move persisted")
	return nil
}

func (e *Engine) write(ctx context.Context, w order.Write) error {
	ctx, span := e.tracer.Start(ctx, "reconcile.write", trace.WithAttributes(
		attribute.String("item.kind", string(w.Kind)),
		attribute.String("item.uuid", w.ItemUUID),
		attribute.String("item.container", w.ContainerUUID),
		attribute.Int("item.position", w.Position),
	))
	defer span.End()

	var op string
	var err error
	switch w.Kind {
	case domain.ItemKindColumn:
		op = "updateColumnPosition"
		_, err = e.remote.UpdateColumnPosition(ctx, w.ItemUUID, w.Position)
	default:
		op = "updateTask"
		pos, column := w.Position, w.ContainerUUID
		_, err = e.remote.UpdateTask(ctx, w.ItemUUID, domain.TaskPatch{Position: &pos, ColumnUUID: &column})
	}
	if err != nil {
		perr := &domain.PersistenceError{Op: op, ItemUUID: w.ItemUUID, Err: err}
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Error())
		return perr
	}
	return nil
}

// reload fetches the board's columns and tasks from the remote store. Board
// metadata never changes through a move, so the local copy is kept.
func (e *Engine) reload(ctx context.Context, board domain.Board) (order.Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "reconcile.reload", trace.WithAttributes(
		attribute.String("board.uuid", board.UUID),
	))
	defer span.End()

	columns, err := e.remote.FetchColumns(ctx, board.UUID)
	if err != nil {
		err = &domain.LoadError{BoardUUID: board.UUID, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.WithFields(log.Fields{
			"board": board.UUID,
			"error": err,
		}).Error("board reload failed; keeping last confirmed state")
		return order.Snapshot{}, err
	}
	span.SetAttributes(attribute.Int("board.columns", len(columns)))
	span.SetStatus(codes.Ok, "")
	return order.NewSnapshot(board, columns), nil
}

// fetch loads the board and its columns for an initial Load.
func (e *Engine) fetch(ctx context.Context, boardUUID string) (order.Snapshot, error) {
	board, err := e.remote.FetchBoard(ctx, boardUUID)
	if err != nil {
		return order.Snapshot{}, &domain.LoadError{BoardUUID: boardUUID, Err: err}
	}
	columns, err := e.remote.FetchColumns(ctx, boardUUID)
	if err != nil {
		return order.Snapshot{}, &domain.LoadError{BoardUUID: boardUUID, Err: err}
	}
	return order.NewSnapshot(*board, columns), nil
}
