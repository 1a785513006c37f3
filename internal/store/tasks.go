package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/events"
)

// TaskStore handles task persistence operations.
type TaskStore struct {
	store *Store
}

// CreateTaskParams contains the parameters for creating a task.
type CreateTaskParams struct {
	Title          string
	Description    string
	Status         domain.TaskStatus   // defaults to todo
	Priority       domain.TaskPriority // defaults to medium
	AssignedUserID *string
}

const taskSelect = `t.uuid, t.id, t.column_uuid, c.board_uuid, t.title, t.description, t.status,
	t.priority, t.assigned_user_id, t.position, t.etag, t.created_at, t.updated_at`

// Create appends a new task at the end of a column.
func (ts *TaskStore) Create(userID, columnUUID string, params CreateTaskParams) (*domain.Task, error) {
	if err := domain.ValidateTitle(params.Title); err != nil {
		return nil, err
	}
	status := params.Status
	if status == "" {
		status = domain.TaskStatusTodo
	}
	if err := domain.ValidateTaskStatus(status); err != nil {
		return nil, err
	}
	priority := params.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	if err := domain.ValidateTaskPriority(priority); err != nil {
		return nil, err
	}

	var task *domain.Task
	err := ts.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := getColumn(tx, columnUUID); err != nil {
			return err
		}

		count, err := countTasks(tx, columnUUID)
		if err != nil {
			return err
		}

		taskUUID := uuid.NewString()
		_, err = tx.Exec(`
			INSERT INTO tasks (uuid, column_uuid, title, description, status, priority, assigned_user_id, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, taskUUID, columnUUID, strings.TrimSpace(params.Title), params.Description,
			status, priority, params.AssignedUserID, count)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		task, err = getTask(tx, taskUUID)
		if err != nil {
			return err
		}
		if err := ew.LogTaskCreated(tx, userID, task.BoardUUID, task); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Get retrieves a task by UUID.
func (ts *TaskStore) Get(taskUUID string) (*domain.Task, error) {
	return getTask(ts.store.db, taskUUID)
}

// Update applies a partial update. Position and column writes only touch
// this task: a reorder persists every affected task in turn. Moving to
// another column requires that column to be on the same board, and the
// position must address a slot in the destination column.
func (ts *TaskStore) Update(userID, taskUUID string, patch domain.TaskPatch, ifMatch int64) (*domain.Task, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var task *domain.Task
	err := ts.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getTask(tx, taskUUID)
		if err != nil {
			return err
		}
		if err := checkETag(current.ETag, ifMatch); err != nil {
			return err
		}

		changes := map[string]any{}
		sets := []string{}
		args := []any{}
		set := func(column string, value any) {
			sets = append(sets, column+" = ?")
			args = append(args, value)
			changes[column] = value
		}

		if patch.Title != nil {
			set("title", strings.TrimSpace(*patch.Title))
		}
		if patch.Description != nil {
			set("description", *patch.Description)
		}
		if patch.Status != nil {
			set("status", string(*patch.Status))
		}
		if patch.Priority != nil {
			set("priority", string(*patch.Priority))
		}
		if patch.Unassign {
			set("assigned_user_id", nil)
		} else if patch.AssignedUserID != nil {
			set("assigned_user_id", *patch.AssignedUserID)
		}

		destColumn := current.ColumnUUID
		if patch.ColumnUUID != nil && *patch.ColumnUUID != current.ColumnUUID {
			dest, err := getColumn(tx, *patch.ColumnUUID)
			if err != nil {
				return err
			}
			if dest.BoardUUID != current.BoardUUID {
				return &domain.ValidationError{Field: "column_id", Message: "column belongs to another board"}
			}
			destColumn = dest.UUID
			set("column_uuid", dest.UUID)
			changes["old_column_uuid"] = current.ColumnUUID
		}
		if patch.Position != nil {
			var others int
			err := tx.QueryRow("SELECT COUNT(*) FROM tasks WHERE column_uuid = ? AND uuid != ?", destColumn, taskUUID).Scan(&others)
			if err != nil {
				return fmt.Errorf("failed to count tasks: %w", err)
			}
			if *patch.Position > others {
				return &domain.ValidationError{
					Field:   "position",
					Message: fmt.Sprintf("%d out of range for %d tasks", *patch.Position, others+1),
				}
			}
			set("position", *patch.Position)
			changes["old_position"] = current.Position
		}

		if len(sets) == 0 {
			task = current
			return nil
		}

		sets = append(sets, "etag = etag + 1", "updated_at = "+nowSQL)
		args = append(args, taskUUID)
		if _, err := tx.Exec("UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE uuid = ?", args...); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		task, err = getTask(tx, taskUUID)
		if err != nil {
			return err
		}
		if err := ew.LogTaskUpdated(tx, userID, task.BoardUUID, task, changes); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task and shifts later tasks in its column down.
func (ts *TaskStore) Delete(userID, taskUUID string, ifMatch int64) error {
	return ts.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getTask(tx, taskUUID)
		if err != nil {
			return err
		}
		if err := checkETag(current.ETag, ifMatch); err != nil {
			return err
		}

		if _, err := tx.Exec("DELETE FROM tasks WHERE uuid = ?", taskUUID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		_, err = tx.Exec(`
			UPDATE tasks SET position = position - 1, etag = etag + 1, updated_at = `+nowSQL+`
			WHERE column_uuid = ? AND position > ?
		`, current.ColumnUUID, current.Position)
		if err != nil {
			return fmt.Errorf("failed to close task gap: %w", err)
		}

		if err := ew.LogTaskDeleted(tx, userID, current.BoardUUID, taskUUID); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
}

func validatePatch(patch domain.TaskPatch) error {
	if patch.IsEmpty() {
		return &domain.ValidationError{Field: "patch", Message: "no fields to update"}
	}
	if patch.Title != nil {
		if err := domain.ValidateTitle(*patch.Title); err != nil {
			return err
		}
	}
	if patch.Status != nil {
		if err := domain.ValidateTaskStatus(*patch.Status); err != nil {
			return err
		}
	}
	if patch.Priority != nil {
		if err := domain.ValidateTaskPriority(*patch.Priority); err != nil {
			return err
		}
	}
	if patch.Position != nil {
		if err := domain.ValidatePosition(*patch.Position); err != nil {
			return err
		}
	}
	return nil
}

func countTasks(q queryer, columnUUID string) (int, error) {
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM tasks WHERE column_uuid = ?", columnUUID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

func getTask(q queryer, taskUUID string) (*domain.Task, error) {
	t, err := scanTask(q.QueryRow(`
		SELECT `+taskSelect+`
		FROM tasks t JOIN columns c ON c.uuid = t.column_uuid
		WHERE t.uuid = ?
	`, taskUUID))
	if err != nil {
		return nil, notFound(err, "task", taskUUID)
	}
	return t, nil
}

func scanTask(row scanner) (*domain.Task, error) {
	t := &domain.Task{}
	var status, priority, createdAt, updatedAt string
	if err := row.Scan(&t.UUID, &t.ID, &t.ColumnUUID, &t.BoardUUID, &t.Title, &t.Description, &status,
		&priority, &t.AssignedUserID, &t.Position, &t.ETag, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}
