package db

import (
	"path/filepath"
	"testing"
)

func TestSequenceDriftDetectAndFix(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// An explicit friendly ID bypasses the sequence trigger.
	_, err = database.Exec(`
		INSERT INTO boards (uuid, id, name, owner_user_id)
		VALUES ('board-uuid-1', 'B-00042', 'Imported', 'alice')
	`)
	if err != nil {
		t.Fatalf("failed to insert board: %v", err)
	}

	drifts, err := SequenceDrifts(database, DefaultSequenceSpecs())
	if err != nil {
		t.Fatalf("failed to detect sequence drift: %v", err)
	}
	if len(drifts) != 1 || drifts[0].SeqTable != "board_seq" {
		t.Fatalf("expected one board_seq drift, got %+v", drifts)
	}
	if drifts[0].MaxID != 42 || drifts[0].SeqValue != 0 {
		t.Errorf("drift = %+v, want max 42 seq 0", drifts[0])
	}

	if _, err := FixSequenceDrifts(database, DefaultSequenceSpecs()); err != nil {
		t.Fatalf("failed to fix sequence drift: %v", err)
	}

	var seq int
	if err := database.QueryRow("SELECT seq FROM sqlite_sequence WHERE name = 'board_seq'").Scan(&seq); err != nil {
		t.Fatalf("failed to query sqlite_sequence: %v", err)
	}
	if seq != 42 {
		t.Fatalf("expected sqlite_sequence to be 42 after fix, got %d", seq)
	}

	// The next generated ID continues after the imported one.
	_, err = database.Exec(`INSERT INTO boards (uuid, name, owner_user_id) VALUES ('board-uuid-2', 'Next', 'alice')`)
	if err != nil {
		t.Fatalf("failed to insert board: %v", err)
	}
	var id string
	if err := database.QueryRow("SELECT id FROM boards WHERE uuid = 'board-uuid-2'").Scan(&id); err != nil {
		t.Fatalf("failed to read id: %v", err)
	}
	if id != "B-00043" {
		t.Errorf("next id = %s, want B-00043", id)
	}

	drifts, err = SequenceDrifts(database, DefaultSequenceSpecs())
	if err != nil {
		t.Fatalf("failed to detect sequence drift after fix: %v", err)
	}
	if len(drifts) != 0 {
		t.Fatalf("expected no drift after fix, found %d", len(drifts))
	}
}

func TestFriendlyIDTriggers(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	stmts := []string{
		`INSERT INTO boards (uuid, name, owner_user_id) VALUES ('b1', 'Board', 'alice')`,
		`INSERT INTO columns (uuid, board_uuid, title, position) VALUES ('c1', 'b1', 'Todo', 0)`,
		`INSERT INTO columns (uuid, board_uuid, title, position) VALUES ('c2', 'b1', 'Done', 1)`,
		`INSERT INTO tasks (uuid, column_uuid, title, position) VALUES ('t1', 'c2', 'Write', 0)`,
		`INSERT INTO members (uuid, board_uuid, user_id, role) VALUES ('m1', 'b1', 'alice', 'owner')`,
	}
	for _, stmt := range stmts {
		if _, err := database.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	tests := []struct {
		table string
		uuid  string
		want  string
	}{
		{"boards", "b1", "B-00001"},
		{"columns", "c1", "C-00001"},
		{"columns", "c2", "C-00002"},
		{"tasks", "t1", "T-00001"},
		{"members", "m1", "M-00001"},
	}
	for _, tt := range tests {
		var id string
		if err := database.QueryRow("SELECT id FROM "+tt.table+" WHERE uuid = ?", tt.uuid).Scan(&id); err != nil {
			t.Fatalf("select %s: %v", tt.table, err)
		}
		if id != tt.want {
			t.Errorf("%s %s id = %s, want %s", tt.table, tt.uuid, id, tt.want)
		}
	}

	// Deleting a board cascades to its columns, tasks and members.
	if _, err := database.Exec("DELETE FROM boards WHERE uuid = 'b1'"); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	for _, table := range []string{"columns", "tasks", "members"} {
		var n int
		if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after cascade", table, n)
		}
	}
}

func TestMigrateAssignsFriendlyIDs(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	inserts := []string{
		`INSERT INTO boards (uuid, name, owner_user_id) VALUES ('b1', 'Sprint', 'alice')`,
		`INSERT INTO boards (uuid, name, owner_user_id) VALUES ('b2', 'Backlog', 'alice')`,
		`INSERT INTO columns (uuid, board_uuid, title, position) VALUES ('c1', 'b1', 'Todo', 0)`,
		`INSERT INTO tasks (uuid, column_uuid, title, position) VALUES ('t1', 'c1', 'a', 0)`,
		`INSERT INTO members (uuid, board_uuid, user_id) VALUES ('m1', 'b1', 'bob')`,
	}
	for _, q := range inserts {
		if _, err := database.Exec(q); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}

	tests := []struct {
		table string
		uuid  string
		want  string
	}{
		{"boards", "b1", "B-00001"},
		{"boards", "b2", "B-00002"},
		{"columns", "c1", "C-00001"},
		{"tasks", "t1", "T-00001"},
		{"members", "m1", "M-00001"},
	}
	for _, tt := range tests {
		var got string
		if err := database.QueryRow("SELECT id FROM "+tt.table+" WHERE uuid = ?", tt.uuid).Scan(&got); err != nil {
			t.Fatalf("read %s id: %v", tt.table, err)
		}
		if got != tt.want {
			t.Errorf("%s %s id = %q, want %q", tt.table, tt.uuid, got, tt.want)
		}
	}

	drifts, err := SequenceDrifts(database, DefaultSequenceSpecs())
	if err != nil {
		t.Fatalf("failed to detect sequence drift: %v", err)
	}
	if len(drifts) != 0 {
		t.Errorf("trigger-assigned ids should not drift, got %+v", drifts)
	}
}
