package order

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lherron/wrkboard/internal/domain"
)

func testBoard() Snapshot {
	cols := columnsOf("X", "Y", "Z")
	for i := range cols {
		cols[i].BoardUUID = "board"
	}
	cols[0].Tasks = tasksOf("X", "t1", "t2")
	cols[1].Tasks = tasksOf("Y", "t3")
	cols[2].Tasks = []domain.Task{}
	return NewSnapshot(domain.Board{UUID: "board", Name: "Test"}, cols)
}

func taskMove(item, from string, fromIdx int, to string, toIdx int) domain.MoveEvent {
	return domain.MoveEvent{
		Kind:        domain.ItemKindTask,
		ItemUUID:    item,
		Source:      domain.Location{ContainerUUID: from, Index: fromIdx},
		Destination: &domain.Location{ContainerUUID: to, Index: toIdx},
	}
}

func columnMove(item string, fromIdx, toIdx int) domain.MoveEvent {
	return domain.MoveEvent{
		Kind:        domain.ItemKindColumn,
		ItemUUID:    item,
		Source:      domain.Location{ContainerUUID: "board", Index: fromIdx},
		Destination: &domain.Location{ContainerUUID: "board", Index: toIdx},
	}
}

func TestApply_ColumnMove(t *testing.T) {
	s := NewSnapshot(domain.Board{UUID: "board"}, columnsOf("A", "B", "C"))

	m, err := s.Apply(columnMove("A", 0, 2))
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if got := columnOrder(m.Next.Columns); got != "B0 C1 A2 " {
		t.Errorf("columns = %q, want %q", got, "B0 C1 A2 ")
	}
	if got := columnOrder(s.Columns); got != "A0 B1 C2 " {
		t.Errorf("receiver mutated: %q", got)
	}

	want := []Write{
		{Kind: domain.ItemKindColumn, ItemUUID: "B", ContainerUUID: "board", Position: 0},
		{Kind: domain.ItemKindColumn, ItemUUID: "C", ContainerUUID: "board", Position: 1},
		{Kind: domain.ItemKindColumn, ItemUUID: "A", ContainerUUID: "board", Position: 2},
	}
	if got := m.Plan(PersistAll); !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() = %v, want %v", got, want)
	}
}

func TestApply_ColumnMoveKeepsTasks(t *testing.T) {
	s := testBoard()
	m, err := s.Apply(columnMove("X", 0, 2))
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	last := m.Next.Columns[2]
	if last.UUID != "X" || len(last.Tasks) != 2 {
		t.Fatalf("moved column lost its tasks: %+v", last)
	}
	if err := m.Next.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestApply_CrossColumnTaskMove(t *testing.T) {
	s := testBoard()

	m, err := s.Apply(taskMove("t1", "X", 0, "Y", 1))
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	x, _ := m.Next.FindColumn("X")
	y, _ := m.Next.FindColumn("Y")
	if got := taskOrder(x.Tasks); got != "t20 " {
		t.Errorf("X tasks = %q, want %q", got, "t20 ")
	}
	if got := taskOrder(y.Tasks); got != "t30 t11 " {
		t.Errorf("Y tasks = %q, want %q", got, "t30 t11 ")
	}
	if y.Tasks[1].ColumnUUID != "Y" {
		t.Errorf("moved task column = %q, want Y", y.Tasks[1].ColumnUUID)
	}
	if !reflect.DeepEqual(m.Affected, []string{"X", "Y"}) {
		t.Errorf("Affected = %v, want [X Y]", m.Affected)
	}
	if err := m.Next.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if s.TaskCount() != m.Next.TaskCount() {
		t.Errorf("task count changed: %d -> %d", s.TaskCount(), m.Next.TaskCount())
	}

	all := m.Plan(PersistAll)
	wantAll := []Write{
		{Kind: domain.ItemKindTask, ItemUUID: "t2", ContainerUUID: "X", Position: 0},
		{Kind: domain.ItemKindTask, ItemUUID: "t3", ContainerUUID: "Y", Position: 0},
		{Kind: domain.ItemKindTask, ItemUUID: "t1", ContainerUUID: "Y", Position: 1},
	}
	if !reflect.DeepEqual(all, wantAll) {
		t.Errorf("Plan(all) = %v, want %v", all, wantAll)
	}

	changed := m.Plan(PersistChanged)
	wantChanged := []Write{
		{Kind: domain.ItemKindTask, ItemUUID: "t2", ContainerUUID: "X", Position: 0},
		{Kind: domain.ItemKindTask, ItemUUID: "t1", ContainerUUID: "Y", Position: 1},
	}
	if !reflect.DeepEqual(changed, wantChanged) {
		t.Errorf("Plan(changed) = %v, want %v", changed, wantChanged)
	}
}

func TestApply_SameColumnTaskMove(t *testing.T) {
	s := testBoard()
	m, err := s.Apply(taskMove("t2", "X", 1, "X", 0))
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	x, _ := m.Next.FindColumn("X")
	if got := taskOrder(x.Tasks); got != "t20 t11 " {
		t.Errorf("X tasks = %q, want %q", got, "t20 t11 ")
	}
	if len(m.Plan(PersistAll)) != 2 {
		t.Errorf("expected 2 writes, got %v", m.Plan(PersistAll))
	}
}

func TestApply_MoveIntoEmptyColumn(t *testing.T) {
	s := testBoard()
	m, err := s.Apply(taskMove("t3", "Y", 0, "Z", 0))
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	y, _ := m.Next.FindColumn("Y")
	z, _ := m.Next.FindColumn("Z")
	if len(y.Tasks) != 0 {
		t.Errorf("Y should be empty, got %v", y.Tasks)
	}
	if got := taskOrder(z.Tasks); got != "t30 " {
		t.Errorf("Z tasks = %q", got)
	}
}

func TestApply_Noop(t *testing.T) {
	s := testBoard()

	tests := []struct {
		name string
		ev   domain.MoveEvent
	}{
		{name: "same slot", ev: taskMove("t2", "X", 1, "X", 1)},
		{name: "cancelled", ev: domain.MoveEvent{Kind: domain.ItemKindTask, ItemUUID: "t1", Source: domain.Location{ContainerUUID: "X"}}},
		{name: "column same slot", ev: columnMove("Y", 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := s.Apply(tt.ev)
			if err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			if !m.Noop {
				t.Fatal("expected no-op")
			}
			if !reflect.DeepEqual(m.Next, s) {
				t.Fatal("no-op changed state")
			}
			if len(m.Plan(PersistAll)) != 0 {
				t.Fatal("no-op produced writes")
			}
		})
	}
}

func TestApply_Invalid(t *testing.T) {
	s := testBoard()

	tests := []struct {
		name string
		ev   domain.MoveEvent
	}{
		{name: "unknown kind", ev: domain.MoveEvent{Kind: "board", Source: domain.Location{}, Destination: &domain.Location{Index: 1}}},
		{name: "unknown destination column", ev: taskMove("t1", "X", 0, "nope", 0)},
		{name: "unknown source column", ev: taskMove("t1", "nope", 0, "X", 0)},
		{name: "stale item", ev: taskMove("t2", "X", 0, "Y", 0)},
		{name: "source out of range", ev: taskMove("", "X", 5, "Y", 0)},
		{name: "destination past append slot", ev: taskMove("t1", "X", 0, "Y", 2)},
		{name: "column outside board", ev: domain.MoveEvent{
			Kind:        domain.ItemKindColumn,
			Source:      domain.Location{ContainerUUID: "other", Index: 0},
			Destination: &domain.Location{ContainerUUID: "other", Index: 1},
		}},
		{name: "column destination out of range", ev: columnMove("X", 0, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Apply(tt.ev)
			var inv *domain.InvalidMoveError
			if !errors.As(err, &inv) {
				t.Fatalf("expected InvalidMoveError, got %v", err)
			}
		})
	}
}

func TestSnapshot_Check(t *testing.T) {
	s := testBoard()
	if v := s.Check(); len(v) != 0 {
		t.Fatalf("expected no violations, got %v", v)
	}

	broken := s.Clone()
	broken.Columns[0].Position = 4
	broken.Columns[1].Tasks[0].Position = 2
	broken.Columns[1].Tasks = append(broken.Columns[1].Tasks, domain.Task{UUID: "t1", ColumnUUID: "X", Position: 1})
	v := broken.Check()
	if len(v) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(v), v)
	}
	if err := broken.Validate(); err == nil {
		t.Fatal("expected Validate() error")
	}

	fixed := broken.Normalize()
	// Normalize repairs positions and references but cannot de-duplicate.
	if v := fixed.Check(); len(v) != 1 {
		t.Fatalf("expected only the duplicate to remain, got %v", v)
	}
}

func TestSnapshot_FindTask(t *testing.T) {
	s := testBoard()
	task, ci, ti, ok := s.FindTask("t2")
	if !ok || task.UUID != "t2" || ci != 0 || ti != 1 {
		t.Fatalf("FindTask(t2) = %+v %d %d %v", task, ci, ti, ok)
	}
	if _, _, _, ok := s.FindTask("missing"); ok {
		t.Fatal("FindTask(missing) should fail")
	}
}

func TestParsePersistPolicy(t *testing.T) {
	if p, err := ParsePersistPolicy(""); err != nil || p != PersistAll {
		t.Errorf("ParsePersistPolicy(\"\") = %q, %v", p, err)
	}
	if p, err := ParsePersistPolicy("changed"); err != nil || p != PersistChanged {
		t.Errorf("ParsePersistPolicy(changed) = %q, %v", p, err)
	}
	if _, err := ParsePersistPolicy("some"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
