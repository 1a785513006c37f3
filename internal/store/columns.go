package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/events"
)

// ColumnStore handles column persistence operations.
type ColumnStore struct {
	store *Store
}

const columnColumns = `uuid, id, board_uuid, title, position, etag, created_at, updated_at`

// Create appends a new column at the end of the board.
func (cs *ColumnStore) Create(userID, boardUUID, title string) (*domain.Column, error) {
	if err := domain.ValidateTitle(title); err != nil {
		return nil, err
	}

	var column *domain.Column
	err := cs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := getBoard(tx, boardUUID); err != nil {
			return err
		}

		var count int
		if err := tx.QueryRow("SELECT COUNT(*) FROM columns WHERE board_uuid = ?", boardUUID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count columns: %w", err)
		}

		columnUUID := uuid.NewString()
		_, err := tx.Exec(`
			INSERT INTO columns (uuid, board_uuid, title, position)
			VALUES (?, ?, ?, ?)
		`, columnUUID, boardUUID, strings.TrimSpace(title), count)
		if err != nil {
			return fmt.Errorf("failed to create column: %w", err)
		}

		column, err = getColumn(tx, columnUUID)
		if err != nil {
			return err
		}
		if err := ew.LogColumnCreated(tx, userID, column); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return column, nil
}

// Get retrieves a column by UUID, without its tasks.
func (cs *ColumnStore) Get(columnUUID string) (*domain.Column, error) {
	return getColumn(cs.store.db, columnUUID)
}

// Rename changes a column's title.
func (cs *ColumnStore) Rename(userID, columnUUID, title string, ifMatch int64) (*domain.Column, error) {
	if err := domain.ValidateTitle(title); err != nil {
		return nil, err
	}

	var column *domain.Column
	err := cs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getColumn(tx, columnUUID)
		if err != nil {
			return err
		}
		if err := checkETag(current.ETag, ifMatch); err != nil {
			return err
		}

		title = strings.TrimSpace(title)
		_, err = tx.Exec(`
			UPDATE columns SET title = ?, etag = etag + 1, updated_at = `+nowSQL+`
			WHERE uuid = ?
		`, title, columnUUID)
		if err != nil {
			return fmt.Errorf("failed to rename column: %w", err)
		}

		column, err = getColumn(tx, columnUUID)
		if err != nil {
			return err
		}
		changes := map[string]any{"old_title": current.Title, "title": title}
		if err := ew.LogColumnUpdated(tx, userID, column, changes); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return column, nil
}

// UpdatePosition writes one column's position. It only touches the named
// column; callers reordering a board write every affected column in turn.
// The position must address a slot among the board's existing columns.
func (cs *ColumnStore) UpdatePosition(userID, columnUUID string, position int) (*domain.Column, error) {
	if err := domain.ValidatePosition(position); err != nil {
		return nil, err
	}

	var column *domain.Column
	err := cs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getColumn(tx, columnUUID)
		if err != nil {
			return err
		}

		var count int
		if err := tx.QueryRow("SELECT COUNT(*) FROM columns WHERE board_uuid = ?", current.BoardUUID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count columns: %w", err)
		}
		if position >= count {
			return &domain.ValidationError{
				Field:   "position",
				Message: fmt.Sprintf("%d out of range for %d columns", position, count),
			}
		}

		_, err = tx.Exec(`
			UPDATE columns SET position = ?, etag = etag + 1, updated_at = `+nowSQL+`
			WHERE uuid = ?
		`, position, columnUUID)
		if err != nil {
			return fmt.Errorf("failed to update column position: %w", err)
		}

		column, err = getColumn(tx, columnUUID)
		if err != nil {
			return err
		}
		if err := ew.LogColumnMoved(tx, userID, column, current.Position); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return column, nil
}

// Delete removes a column and its tasks, then shifts later columns down so
// the board's positions stay contiguous.
func (cs *ColumnStore) Delete(userID, columnUUID string, ifMatch int64) error {
	return cs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getColumn(tx, columnUUID)
		if err != nil {
			return err
		}
		if err := checkETag(current.ETag, ifMatch); err != nil {
			return err
		}

		var tasks int
		if err := tx.QueryRow("SELECT COUNT(*) FROM tasks WHERE column_uuid = ?", columnUUID).Scan(&tasks); err != nil {
			return fmt.Errorf("failed to count tasks: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM columns WHERE uuid = ?", columnUUID); err != nil {
			return fmt.Errorf("failed to delete column: %w", err)
		}
		_, err = tx.Exec(`
			UPDATE columns SET position = position - 1, etag = etag + 1, updated_at = `+nowSQL+`
			WHERE board_uuid = ? AND position > ?
		`, current.BoardUUID, current.Position)
		if err != nil {
			return fmt.Errorf("failed to close column gap: %w", err)
		}

		if err := ew.LogColumnDeleted(tx, userID, current.BoardUUID, columnUUID, tasks); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
}

// ListByBoard returns the board's columns ordered by position, each with its
// tasks ordered by position.
func (cs *ColumnStore) ListByBoard(boardUUID string) ([]domain.Column, error) {
	return listColumns(cs.store.db, boardUUID)
}

func listColumns(q queryer, boardUUID string) ([]domain.Column, error) {
	if _, err := getBoard(q, boardUUID); err != nil {
		return nil, err
	}

	rows, err := q.Query(`SELECT `+columnColumns+` FROM columns WHERE board_uuid = ? ORDER BY position, id`, boardUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	columns := []domain.Column{}
	index := map[string]int{}
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		c.Tasks = []domain.Task{}
		index[c.UUID] = len(columns)
		columns = append(columns, *c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = q.Query(`
		SELECT `+taskSelect+`
		FROM tasks t JOIN columns c ON c.uuid = t.column_uuid
		WHERE c.board_uuid = ?
		ORDER BY c.position, c.id, t.position, t.id
	`, boardUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		i := index[t.ColumnUUID]
		columns[i].Tasks = append(columns[i].Tasks, *t)
	}
	return columns, rows.Err()
}

func getColumn(q queryer, columnUUID string) (*domain.Column, error) {
	c, err := scanColumn(q.QueryRow(`SELECT `+columnColumns+` FROM columns WHERE uuid = ?`, columnUUID))
	if err != nil {
		return nil, notFound(err, "column", columnUUID)
	}
	return c, nil
}

func scanColumn(row scanner) (*domain.Column, error) {
	c := &domain.Column{}
	var createdAt, updatedAt string
	if err := row.Scan(&c.UUID, &c.ID, &c.BoardUUID, &c.Title, &c.Position, &c.ETag, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}
