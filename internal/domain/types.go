package domain

import (
	"time"
)

// TaskStatus represents the workflow status of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskPriority represents how urgent a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// MemberRole represents a member's role on a board
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

// ItemKind identifies what a move event relocates
type ItemKind string

const (
	ItemKindColumn ItemKind = "column"
	ItemKindTask   ItemKind = "task"
)

// Board is the top-level container of columns
type Board struct {
	UUID        string    `json:"uuid" yaml:"uuid" db:"uuid"`
	ID          string    `json:"id" yaml:"id" db:"id"`
	Name        string    `json:"name" yaml:"name" db:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" db:"description"`
	OwnerUserID string    `json:"owner_user_id" yaml:"owner_user_id" db:"owner_user_id"`
	ETag        int64     `json:"etag" yaml:"etag" db:"etag"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at" db:"updated_at"`
}

// Column is an ordered container of tasks within a board.
// Position is the column's dense 0-based rank among the board's columns.
type Column struct {
	UUID      string    `json:"uuid" yaml:"uuid" db:"uuid"`
	ID        string    `json:"id" yaml:"id" db:"id"`
	BoardUUID string    `json:"board_uuid" yaml:"board_uuid" db:"board_uuid"`
	Title     string    `json:"title" yaml:"title" db:"title"`
	Position  int       `json:"position" yaml:"position" db:"position"`
	ETag      int64     `json:"etag" yaml:"etag" db:"etag"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" db:"updated_at"`
	Tasks     []Task    `json:"tasks" yaml:"tasks"`
}

// Task is a unit of work belonging to exactly one column at a time.
// Position is the task's dense 0-based rank within its column.
type Task struct {
	UUID           string       `json:"uuid" yaml:"uuid" db:"uuid"`
	ID             string       `json:"id" yaml:"id" db:"id"`
	ColumnUUID     string       `json:"column_uuid" yaml:"column_uuid" db:"column_uuid"`
	BoardUUID      string       `json:"board_uuid,omitempty" yaml:"board_uuid,omitempty"`
	Title          string       `json:"title" yaml:"title" db:"title"`
	Description    string       `json:"description,omitempty" yaml:"description,omitempty" db:"description"`
	Status         TaskStatus   `json:"status" yaml:"status" db:"status"`
	Priority       TaskPriority `json:"priority" yaml:"priority" db:"priority"`
	AssignedUserID *string      `json:"assigned_user_id,omitempty" yaml:"assigned_user_id,omitempty" db:"assigned_user_id"`
	Position       int          `json:"position" yaml:"position" db:"position"`
	ETag           int64        `json:"etag" yaml:"etag" db:"etag"`
	CreatedAt      time.Time    `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" yaml:"updated_at" db:"updated_at"`
}

// Member grants a user access to a board
type Member struct {
	UUID      string     `json:"uuid" yaml:"uuid" db:"uuid"`
	ID        string     `json:"id" yaml:"id" db:"id"`
	BoardUUID string     `json:"board_uuid" yaml:"board_uuid" db:"board_uuid"`
	UserID    string     `json:"user_id" yaml:"user_id" db:"user_id"`
	Role      MemberRole `json:"role" yaml:"role" db:"role"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at" db:"created_at"`
}

// Event represents an event in the event log
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	UserID       *string   `json:"user_id,omitempty" db:"user_id"`
	BoardUUID    *string   `json:"board_uuid,omitempty" db:"board_uuid"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceUUID *string   `json:"resource_uuid,omitempty" db:"resource_uuid"`
	EventType    string    `json:"event_type" db:"event_type"`
	ETag         *int64    `json:"etag,omitempty" db:"etag"`
	Payload      *string   `json:"payload,omitempty" db:"payload"` // JSON
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title          *string       `json:"title,omitempty"`
	Description    *string       `json:"description,omitempty"`
	Status         *TaskStatus   `json:"status,omitempty"`
	Priority       *TaskPriority `json:"priority,omitempty"`
	AssignedUserID *string       `json:"assigned_user_id,omitempty"`
	Unassign       bool          `json:"unassign,omitempty"`
	Position       *int          `json:"position,omitempty"`
	ColumnUUID     *string       `json:"column_id,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.AssignedUserID == nil && !p.Unassign && p.Position == nil && p.ColumnUUID == nil
}

// Location addresses a slot inside an ordered container.
// For column moves the container is the board.
type Location struct {
	ContainerUUID string `json:"container_id"`
	Index         int    `json:"index"`
}

// MoveEvent describes one completed drag gesture.
// A nil Destination means the gesture was cancelled.
type MoveEvent struct {
	Kind        ItemKind  `json:"kind"`
	ItemUUID    string    `json:"item_id"`
	Source      Location  `json:"source"`
	Destination *Location `json:"destination,omitempty"`
}

// IsNoop reports whether the event leaves every item where it was
func (e MoveEvent) IsNoop() bool {
	if e.Destination == nil {
		return true
	}
	return e.Destination.ContainerUUID == e.Source.ContainerUUID && e.Destination.Index == e.Source.Index
}

// WithPosition returns a copy of the column with the given position
func (c Column) WithPosition(position int) Column {
	c.Position = position
	return c
}

// WithPosition returns a copy of the task with the given position
func (t Task) WithPosition(position int) Task {
	t.Position = position
	return t
}

// WithContainer returns a copy of the task reassigned to another column
func (t Task) WithContainer(columnUUID string) Task {
	t.ColumnUUID = columnUUID
	return t
}

// Clone returns a copy of the column that does not share its task slice
func (c Column) Clone() Column {
	if c.Tasks != nil {
		tasks := make([]Task, len(c.Tasks))
		copy(tasks, c.Tasks)
		c.Tasks = tasks
	}
	return c
}
