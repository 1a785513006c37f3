package selectors

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/wrkboard/internal/db"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/store"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input       string
		expectType  Type
		expectToken string
	}{
		{"t:T-00123", TypeTask, "T-00123"},
		{"b:Roadmap", TypeBoard, "Roadmap"},
		{"c:Doing", TypeColumn, "Doing"},
		{"T-00123", TypeAuto, "T-00123"},
		{" B-00001 ", TypeAuto, "B-00001"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel := Parse(tt.input)
			if sel.Type != tt.expectType {
				t.Errorf("Parse(%q).Type = %v, want %v", tt.input, sel.Type, tt.expectType)
			}
			if sel.Token != tt.expectToken {
				t.Errorf("Parse(%q).Token = %q, want %q", tt.input, sel.Token, tt.expectToken)
			}
		})
	}
}

func setup(t *testing.T) (*db.DB, *store.Store) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return database, store.New(database)
}

func TestResolve(t *testing.T) {
	database, s := setup(t)

	board, err := s.Boards.Create("alice", store.CreateBoardParams{Name: "Roadmap"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	col, err := s.Columns.Create("alice", board.UUID, "Doing")
	if err != nil {
		t.Fatalf("create column: %v", err)
	}
	task, err := s.Tasks.Create("alice", col.UUID, store.CreateTaskParams{Title: "Ship"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	for _, sel := range []string{"B-00001", "b:B-00001", board.UUID, strings.ToUpper(board.UUID), "Roadmap", "b:Roadmap"} {
		r, err := ResolveBoard(database, sel)
		if err != nil {
			t.Fatalf("ResolveBoard(%q): %v", sel, err)
		}
		if r.UUID != board.UUID || r.FriendlyID != "B-00001" {
			t.Errorf("ResolveBoard(%q) = %+v", sel, r)
		}
	}

	for _, sel := range []string{"C-00001", col.UUID, "Doing", "c:Doing"} {
		r, err := ResolveColumn(database, board.UUID, sel)
		if err != nil {
			t.Fatalf("ResolveColumn(%q): %v", sel, err)
		}
		if r.UUID != col.UUID {
			t.Errorf("ResolveColumn(%q) = %+v", sel, r)
		}
	}

	r, err := ResolveTask(database, "t:"+task.ID)
	if err != nil || r.UUID != task.UUID {
		t.Fatalf("ResolveTask = %+v, %v", r, err)
	}
}

func TestResolveErrors(t *testing.T) {
	database, s := setup(t)
	for i := 0; i < 2; i++ {
		if _, err := s.Boards.Create("alice", store.CreateBoardParams{Name: "Twin"}); err != nil {
			t.Fatalf("create board: %v", err)
		}
	}

	if _, err := ResolveBoard(database, "Twin"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguity error, got %v", err)
	}
	if _, err := ResolveBoard(database, "B-00099"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := ResolveBoard(database, "Nope"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := ResolveBoard(database, "t:T-00001"); err == nil {
		t.Error("expected type mismatch error")
	}
	if _, err := ResolveColumn(database, "", "Doing"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound without board, got %v", err)
	}
	if _, err := ResolveTask(database, "Ship"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFound for task name, got %v", err)
	}
}
