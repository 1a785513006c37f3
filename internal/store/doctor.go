package store

import (
	"database/sql"
	"fmt"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/events"
	"github.com/lherron/wrkboard/internal/order"
)

// Snapshot loads a board with its ordered columns and tasks.
func (s *Store) Snapshot(boardUUID string) (order.Snapshot, error) {
	board, err := s.Boards.Get(boardUUID)
	if err != nil {
		return order.Snapshot{}, err
	}
	columns, err := s.Columns.ListByBoard(boardUUID)
	if err != nil {
		return order.Snapshot{}, err
	}
	return order.Snapshot{Board: *board, Columns: columns}, nil
}

// CheckOrder reports every position gap, duplicate or stale column
// reference on a board.
func (s *Store) CheckOrder(boardUUID string) ([]order.Violation, error) {
	snap, err := s.Snapshot(boardUUID)
	if err != nil {
		return nil, err
	}
	return snap.Check(), nil
}

// Renumber rewrites positions on a board so they are contiguous again,
// keeping the current relative order. It returns the number of rows changed.
func (s *Store) Renumber(userID, boardUUID string) (int, error) {
	fixed := 0
	err := s.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		columns, err := listColumns(tx, boardUUID)
		if err != nil {
			return err
		}
		snap := order.Snapshot{Board: domain.Board{UUID: boardUUID}, Columns: columns}
		normalized := snap.Normalize()

		for ci, col := range normalized.Columns {
			if col.Position != columns[ci].Position {
				_, err := tx.Exec(`UPDATE columns SET position = ?, etag = etag + 1, updated_at = `+nowSQL+` WHERE uuid = ?`,
					col.Position, col.UUID)
				if err != nil {
					return fmt.Errorf("failed to renumber column %s: %w", col.ID, err)
				}
				fixed++
			}
			for ti, task := range col.Tasks {
				if task.Position != columns[ci].Tasks[ti].Position {
					_, err := tx.Exec(`UPDATE tasks SET position = ?, etag = etag + 1, updated_at = `+nowSQL+` WHERE uuid = ?`,
						task.Position, task.UUID)
					if err != nil {
						return fmt.Errorf("failed to renumber task %s: %w", task.ID, err)
					}
					fixed++
				}
			}
		}

		if fixed == 0 {
			return nil
		}
		resource := boardUUID
		payload := fmt.Sprintf(`{"rows":%d}`, fixed)
		if err := ew.LogEvent(tx, &domain.Event{
			UserID:       optional(userID),
			BoardUUID:    &resource,
			ResourceType: "board",
			ResourceUUID: &resource,
			EventType:    "board.renumbered",
			Payload:      &payload,
		}); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	return fixed, err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
