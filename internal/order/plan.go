package order

import (
	"fmt"

	"github.com/lherron/wrkboard/internal/domain"
)

// PersistPolicy selects which items of the affected collections are written.
type PersistPolicy string

const (
	// PersistAll writes every item of every affected collection.
	PersistAll PersistPolicy = "all"
	// PersistChanged writes only items whose position or column changed.
	PersistChanged PersistPolicy = "changed"
)

// ParsePersistPolicy parses a policy name; empty means PersistAll.
func ParsePersistPolicy(s string) (PersistPolicy, error) {
	switch PersistPolicy(s) {
	case "", PersistAll:
		return PersistAll, nil
	case PersistChanged:
		return PersistChanged, nil
	default:
		return "", fmt.Errorf("unknown persist policy %q (want all or changed)", s)
	}
}

// Write is one position update to send to the remote store.
type Write struct {
	Kind          domain.ItemKind `json:"kind"`
	ItemUUID      string          `json:"item_uuid"`
	ContainerUUID string          `json:"container_uuid"`
	Position      int             `json:"position"`
}

func (w Write) String() string {
	return fmt.Sprintf("%s %s -> %s[%d]", w.Kind, w.ItemUUID, w.ContainerUUID, w.Position)
}

// Plan returns the writes needed to persist m, grouped by affected
// collection and in index order within each collection.
func (m Move) Plan(policy PersistPolicy) []Write {
	if m.Noop {
		return nil
	}
	if m.Event.Kind == domain.ItemKindColumn {
		return m.planColumns(policy)
	}
	return m.planTasks(policy)
}

func (m Move) planColumns(policy PersistPolicy) []Write {
	prev := make(map[string]int, len(m.Prev.Columns))
	for _, col := range m.Prev.Columns {
		prev[col.UUID] = col.Position
	}

	var writes []Write
	for _, col := range m.Next.Columns {
		if policy == PersistChanged {
			if pos, ok := prev[col.UUID]; ok && pos == col.Position {
				continue
			}
		}
		writes = append(writes, Write{
			Kind:          domain.ItemKindColumn,
			ItemUUID:      col.UUID,
			ContainerUUID: m.Next.Board.UUID,
			Position:      col.Position,
		})
	}
	return writes
}

type taskSlot struct {
	column   string
	position int
}

func (m Move) planTasks(policy PersistPolicy) []Write {
	prev := make(map[string]taskSlot)
	for _, col := range m.Prev.Columns {
		for _, task := range col.Tasks {
			prev[task.UUID] = taskSlot{column: task.ColumnUUID, position: task.Position}
		}
	}

	var writes []Write
	for _, columnUUID := range m.Affected {
		col, ok := m.Next.FindColumn(columnUUID)
		if !ok {
			continue
		}
		for _, task := range col.Tasks {
			if policy == PersistChanged {
				if was, ok := prev[task.UUID]; ok && was.column == task.ColumnUUID && was.position == task.Position {
					continue
				}
			}
			writes = append(writes, Write{
				Kind:          domain.ItemKindTask,
				ItemUUID:      task.UUID,
				ContainerUUID: task.ColumnUUID,
				Position:      task.Position,
			})
		}
	}
	return writes
}
