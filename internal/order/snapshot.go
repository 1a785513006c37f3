package order

import (
	"fmt"

	"github.com/lherron/wrkboard/internal/domain"
)

// Snapshot is the two-level ordered state of one board: its columns in order,
// each holding its tasks in order. Snapshots are values; every mutation
// produces a new Snapshot and never touches the receiver's slices.
type Snapshot struct {
	Board   domain.Board    `json:"board" yaml:"board"`
	Columns []domain.Column `json:"columns" yaml:"columns"`
}

// NewSnapshot builds a snapshot from a board and its ordered columns.
func NewSnapshot(board domain.Board, columns []domain.Column) Snapshot {
	return Snapshot{Board: board, Columns: cloneColumns(columns)}
}

// BoardUUID returns the UUID of the board the snapshot describes.
func (s Snapshot) BoardUUID() string {
	return s.Board.UUID
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Board: s.Board, Columns: cloneColumns(s.Columns)}
}

// ColumnIndex returns the index of the column with the given UUID, or -1.
func (s Snapshot) ColumnIndex(columnUUID string) int {
	for i := range s.Columns {
		if s.Columns[i].UUID == columnUUID {
			return i
		}
	}
	return -1
}

// FindColumn looks up a column by UUID or friendly ID.
func (s Snapshot) FindColumn(ref string) (domain.Column, bool) {
	for _, col := range s.Columns {
		if col.UUID == ref || col.ID == ref {
			return col, true
		}
	}
	return domain.Column{}, false
}

// FindTask looks up a task by UUID or friendly ID and returns it together
// with its column index and task index.
func (s Snapshot) FindTask(ref string) (domain.Task, int, int, bool) {
	for ci, col := range s.Columns {
		for ti, task := range col.Tasks {
			if task.UUID == ref || task.ID == ref {
				return task, ci, ti, true
			}
		}
	}
	return domain.Task{}, -1, -1, false
}

// TaskCount returns the number of tasks across all columns.
func (s Snapshot) TaskCount() int {
	n := 0
	for _, col := range s.Columns {
		n += len(col.Tasks)
	}
	return n
}

// Violation describes one broken ordering invariant.
type Violation struct {
	ContainerUUID string `json:"container_uuid"`
	ItemUUID      string `json:"item_uuid"`
	Message       string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s/%s: %s", v.ContainerUUID, v.ItemUUID, v.Message)
}

// Check returns every violation of the ordering invariants: column positions
// equal their indices, task positions equal their indices, each task points
// at the column holding it, and no task appears twice.
func (s Snapshot) Check() []Violation {
	var out []Violation
	seen := make(map[string]string)

	for ci, col := range s.Columns {
		if col.Position != ci {
			out = append(out, Violation{
				ContainerUUID: s.Board.UUID,
				ItemUUID:      col.UUID,
				Message:       fmt.Sprintf("column position %d at index %d", col.Position, ci),
			})
		}
		for ti, task := range col.Tasks {
			if task.Position != ti {
				out = append(out, Violation{
					ContainerUUID: col.UUID,
					ItemUUID:      task.UUID,
					Message:       fmt.Sprintf("task position %d at index %d", task.Position, ti),
				})
			}
			if task.ColumnUUID != col.UUID {
				out = append(out, Violation{
					ContainerUUID: col.UUID,
					ItemUUID:      task.UUID,
					Message:       fmt.Sprintf("task references column %s", task.ColumnUUID),
				})
			}
			if other, dup := seen[task.UUID]; dup {
				out = append(out, Violation{
					ContainerUUID: col.UUID,
					ItemUUID:      task.UUID,
					Message:       fmt.Sprintf("task also present in column %s", other),
				})
			}
			seen[task.UUID] = col.UUID
		}
	}
	return out
}

// Validate returns an error describing the first invariant violation, if any.
func (s Snapshot) Validate() error {
	if v := s.Check(); len(v) > 0 {
		return fmt.Errorf("board %s violates ordering (%d problems): %s", s.Board.UUID, len(v), v[0])
	}
	return nil
}

// Normalize returns a copy whose positions and column references are
// rewritten from the current slice order.
func (s Snapshot) Normalize() Snapshot {
	out := s.Clone()
	out.Columns = Renumber(out.Columns)
	for i := range out.Columns {
		tasks := make([]domain.Task, len(out.Columns[i].Tasks))
		for ti, task := range out.Columns[i].Tasks {
			tasks[ti] = task.WithContainer(out.Columns[i].UUID).WithPosition(ti)
		}
		out.Columns[i].Tasks = tasks
	}
	return out
}

func cloneColumns(columns []domain.Column) []domain.Column {
	if columns == nil {
		return nil
	}
	out := make([]domain.Column, len(columns))
	for i, col := range columns {
		out[i] = col.Clone()
	}
	return out
}
