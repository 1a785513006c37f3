package order

import (
	"github.com/lherron/wrkboard/internal/domain"
)

// Move is the outcome of applying a MoveEvent to a Snapshot.
type Move struct {
	Event domain.MoveEvent
	Prev  Snapshot
	Next  Snapshot
	// Affected lists the containers whose order changed, in persistence
	// order: the board for column moves, source then destination column for
	// task moves.
	Affected []string
	Noop     bool
}

// Apply computes the snapshot that results from ev. Cancelled gestures and
// drops onto the original slot yield a no-op Move whose Next equals the
// receiver. Malformed events return an *domain.InvalidMoveError and leave the
// receiver untouched.
func (s Snapshot) Apply(ev domain.MoveEvent) (Move, error) {
	if err := domain.ValidateItemKind(ev.Kind); err != nil {
		return Move{}, domain.InvalidMove("%v", err)
	}
	if ev.IsNoop() {
		return Move{Event: ev, Prev: s, Next: s, Noop: true}, nil
	}

	switch ev.Kind {
	case domain.ItemKindColumn:
		return s.applyColumnMove(ev)
	default:
		return s.applyTaskMove(ev)
	}
}

func (s Snapshot) applyColumnMove(ev domain.MoveEvent) (Move, error) {
	board := s.Board.UUID
	if ev.Source.ContainerUUID != board || ev.Destination.ContainerUUID != board {
		return Move{}, domain.InvalidMove("columns can only move within board %s", board)
	}
	if err := checkItem(ev, len(s.Columns), func(i int) string { return s.Columns[i].UUID }); err != nil {
		return Move{}, err
	}

	next := s.Clone()
	columns, err := MoveWithinList(next.Columns, ev.Source.Index, ev.Destination.Index)
	if err != nil {
		return Move{}, err
	}
	next.Columns = columns

	return Move{Event: ev, Prev: s, Next: next, Affected: []string{board}}, nil
}

func (s Snapshot) applyTaskMove(ev domain.MoveEvent) (Move, error) {
	srcIdx := s.ColumnIndex(ev.Source.ContainerUUID)
	if srcIdx < 0 {
		return Move{}, domain.InvalidMove("unknown source column %q", ev.Source.ContainerUUID)
	}
	dstIdx := s.ColumnIndex(ev.Destination.ContainerUUID)
	if dstIdx < 0 {
		return Move{}, domain.InvalidMove("unknown destination column %q", ev.Destination.ContainerUUID)
	}
	srcTasks := s.Columns[srcIdx].Tasks
	if err := checkItem(ev, len(srcTasks), func(i int) string { return srcTasks[i].UUID }); err != nil {
		return Move{}, err
	}

	next := s.Clone()
	if srcIdx == dstIdx {
		tasks, err := MoveWithinList(next.Columns[srcIdx].Tasks, ev.Source.Index, ev.Destination.Index)
		if err != nil {
			return Move{}, err
		}
		next.Columns[srcIdx].Tasks = tasks
		return Move{Event: ev, Prev: s, Next: next, Affected: []string{ev.Source.ContainerUUID}}, nil
	}

	src, dst, err := MoveAcrossLists(
		next.Columns[srcIdx].Tasks,
		next.Columns[dstIdx].Tasks,
		ev.Source.Index,
		ev.Destination.Index,
		next.Columns[dstIdx].UUID,
	)
	if err != nil {
		return Move{}, err
	}
	next.Columns[srcIdx].Tasks = src
	next.Columns[dstIdx].Tasks = dst

	return Move{
		Event:    ev,
		Prev:     s,
		Next:     next,
		Affected: []string{ev.Source.ContainerUUID, ev.Destination.ContainerUUID},
	}, nil
}

// checkItem verifies the source index is in range and, when the event names
// the moved item, that the item actually sits at that index.
func checkItem(ev domain.MoveEvent, n int, uuidAt func(int) string) error {
	if ev.Source.Index < 0 || ev.Source.Index >= n {
		return domain.InvalidMove("source index %d out of range [0,%d)", ev.Source.Index, n)
	}
	if ev.ItemUUID != "" && uuidAt(ev.Source.Index) != ev.ItemUUID {
		return domain.InvalidMove("item %s is not at index %d of %s", ev.ItemUUID, ev.Source.Index, ev.Source.ContainerUUID)
	}
	return nil
}
