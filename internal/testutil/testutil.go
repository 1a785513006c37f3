package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/wrkboard/internal/db"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/store"
)

// TempDB creates a temporary migrated SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// TempStore returns a Store over a fresh temporary database
func TempStore(t *testing.T) *store.Store {
	t.Helper()
	database, _ := TempDB(t)
	return store.New(database)
}

// SeedBoard creates a board owned by user from a layout such as
// "Todo:a,b | Doing:c | Done:". Columns and tasks are created in order.
func SeedBoard(t *testing.T, s *store.Store, user, name, layout string) *domain.Board {
	t.Helper()
	board, err := s.Boards.Create(user, store.CreateBoardParams{Name: name})
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	for _, spec := range strings.Split(layout, "|") {
		title, tasks, _ := strings.Cut(strings.TrimSpace(spec), ":")
		if title == "" {
			continue
		}
		col, err := s.Columns.Create(user, board.UUID, title)
		if err != nil {
			t.Fatalf("Failed to create column %s: %v", title, err)
		}
		for _, task := range strings.Split(tasks, ",") {
			if task = strings.TrimSpace(task); task == "" {
				continue
			}
			if _, err := s.Tasks.Create(user, col.UUID, store.CreateTaskParams{Title: task}); err != nil {
				t.Fatalf("Failed to create task %s: %v", task, err)
			}
		}
	}
	return board
}

// Layout renders a board from the store in SeedBoard's layout syntax
func Layout(t *testing.T, s *store.Store, boardUUID string) string {
	t.Helper()
	columns, err := s.Columns.ListByBoard(boardUUID)
	if err != nil {
		t.Fatalf("Failed to list columns: %v", err)
	}
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		titles := make([]string, 0, len(c.Tasks))
		for _, task := range c.Tasks {
			titles = append(titles, task.Title)
		}
		parts = append(parts, c.Title+":"+strings.Join(titles, ","))
	}
	return strings.Join(parts, " | ")
}

// WriteFile writes content to a file in dir
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertError asserts that an error is not nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

// AssertStringContains asserts that a string contains a substring
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Fatalf("Expected string to contain %q, got %q", substr, str)
	}
}
