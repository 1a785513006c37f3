// Package events writes and reads the board event log.
package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lherron/wrkboard/internal/domain"
)

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(tx *sql.Tx, event *domain.Event) error {
	query := `
		INSERT INTO event_log (user_id, board_uuid, resource_type, resource_uuid, event_type, etag, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := w.getExecutor(tx).Exec(query,
		event.UserID, event.BoardUUID, event.ResourceType, event.ResourceUUID,
		event.EventType, event.ETag, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

func (w *Writer) log(tx *sql.Tx, userID, boardUUID, resourceType, resourceUUID, eventType string, etag *int64, payload any) error {
	event := &domain.Event{
		BoardUUID:    &boardUUID,
		ResourceType: resourceType,
		ResourceUUID: &resourceUUID,
		EventType:    eventType,
		ETag:         etag,
	}
	if userID != "" {
		event.UserID = &userID
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		s := string(data)
		event.Payload = &s
	}
	return w.LogEvent(tx, event)
}

// LogBoardCreated logs a board creation event
func (w *Writer) LogBoardCreated(tx *sql.Tx, userID string, board *domain.Board) error {
	return w.log(tx, userID, board.UUID, "board", board.UUID, "board.created", &board.ETag, map[string]any{
		"name":  board.Name,
		"owner": board.OwnerUserID,
	})
}

// LogBoardUpdated logs a board update event
func (w *Writer) LogBoardUpdated(tx *sql.Tx, userID string, board *domain.Board, changes map[string]any) error {
	return w.log(tx, userID, board.UUID, "board", board.UUID, "board.updated", &board.ETag, changes)
}

// LogBoardDeleted logs a board deletion event
func (w *Writer) LogBoardDeleted(tx *sql.Tx, userID, boardUUID string) error {
	return w.log(tx, userID, boardUUID, "board", boardUUID, "board.deleted", nil, nil)
}

// LogColumnCreated logs a column creation event
func (w *Writer) LogColumnCreated(tx *sql.Tx, userID string, column *domain.Column) error {
	return w.log(tx, userID, column.BoardUUID, "column", column.UUID, "column.created", &column.ETag, map[string]any{
		"title":    column.Title,
		"position": column.Position,
	})
}

// LogColumnUpdated logs a column update event
func (w *Writer) LogColumnUpdated(tx *sql.Tx, userID string, column *domain.Column, changes map[string]any) error {
	return w.log(tx, userID, column.BoardUUID, "column", column.UUID, "column.updated", &column.ETag, changes)
}

// LogColumnMoved logs a column position change
func (w *Writer) LogColumnMoved(tx *sql.Tx, userID string, column *domain.Column, from int) error {
	return w.log(tx, userID, column.BoardUUID, "column", column.UUID, "column.moved", &column.ETag, map[string]any{
		"from": from,
		"to":   column.Position,
	})
}

// LogColumnDeleted logs a column deletion event
func (w *Writer) LogColumnDeleted(tx *sql.Tx, userID, boardUUID, columnUUID string, tasks int) error {
	return w.log(tx, userID, boardUUID, "column", columnUUID, "column.deleted", nil, map[string]any{
		"tasks_deleted": tasks,
	})
}

// LogTaskCreated logs a task creation event
func (w *Writer) LogTaskCreated(tx *sql.Tx, userID, boardUUID string, task *domain.Task) error {
	return w.log(tx, userID, boardUUID, "task", task.UUID, "task.created", &task.ETag, map[string]any{
		"title":     task.Title,
		"column_id": task.ColumnUUID,
		"position":  task.Position,
		"status":    task.Status,
	})
}

// LogTaskUpdated logs a task update event
func (w *Writer) LogTaskUpdated(tx *sql.Tx, userID, boardUUID string, task *domain.Task, changes map[string]any) error {
	return w.log(tx, userID, boardUUID, "task", task.UUID, "task.updated", &task.ETag, changes)
}

// LogTaskDeleted logs a task deletion event
func (w *Writer) LogTaskDeleted(tx *sql.Tx, userID, boardUUID, taskUUID string) error {
	return w.log(tx, userID, boardUUID, "task", taskUUID, "task.deleted", nil, nil)
}

// LogMemberAdded logs a member being added to a board
func (w *Writer) LogMemberAdded(tx *sql.Tx, userID string, member *domain.Member) error {
	return w.log(tx, userID, member.BoardUUID, "member", member.UUID, "member.added", nil, map[string]any{
		"user_id": member.UserID,
		"role":    member.Role,
	})
}

// LogMemberRemoved logs a member being removed from a board
func (w *Writer) LogMemberRemoved(tx *sql.Tx, userID string, member *domain.Member) error {
	return w.log(tx, userID, member.BoardUUID, "member", member.UUID, "member.removed", nil, map[string]any{
		"user_id": member.UserID,
	})
}

// ListByBoard returns the most recent events for a board, newest first.
// A limit of zero or less returns every event.
func ListByBoard(db *sql.DB, boardUUID string, limit int) ([]domain.Event, error) {
	query := `
		SELECT id, timestamp, user_id, board_uuid, resource_type, resource_uuid, event_type, etag, payload
		FROM event_log WHERE board_uuid = ? ORDER BY id DESC
	`
	args := []any{boardUUID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.UserID, &e.BoardUUID, &e.ResourceType,
			&e.ResourceUUID, &e.EventType, &e.ETag, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...any) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
