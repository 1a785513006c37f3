package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/lherron/wrkboard/internal/db"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/store"
)

const testToken = "secret"

func newFixture(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	_, client := newRedis(t)
	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	s := store.New(database)
	srv := New(s, Options{
		Token:       testToken,
		DefaultUser: "alice",
		Redis:       client,
		CacheTTL:    time.Minute,
		Logger:      logger,
	})
	return srv, s
}

func do(t *testing.T, srv *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf.Write(data)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := sonic.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	srv, _ := newFixture(t)

	tests := []struct {
		name    string
		headers []string
		want    int
	}{
		{"bearer", []string{"Authorization", "Bearer " + testToken}, http.StatusOK},
		{"token header", []string{"Authorization", "", TokenHeader, testToken}, http.StatusOK},
		{"missing", []string{"Authorization", ""}, http.StatusUnauthorized},
		{"wrong", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/v1/health", nil, tt.headers...)
			expectStatus(t, rec, tt.want)
			if tt.want == http.StatusUnauthorized {
				var body map[string]string
				decode(t, rec, &body)
				if body["message"] != "unauthorized" {
					t.Fatalf("unexpected error body: %v", body)
				}
			}
		})
	}
}

func TestBoardsCRUD(t *testing.T) {
	srv, _ := newFixture(t)

	rec := do(t, srv, http.MethodPost, "/v1/boards", map[string]string{"name": "Roadmap"})
	expectStatus(t, rec, http.StatusCreated)
	var board domain.Board
	decode(t, rec, &board)
	if board.ID != "B-00001" || board.OwnerUserID != "alice" {
		t.Fatalf("unexpected board: %+v", board)
	}

	rec = do(t, srv, http.MethodGet, "/v1/boards/B-00001", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, srv, http.MethodGet, "/v1/boards/Roadmap", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, srv, http.MethodPatch, "/v1/boards/"+board.UUID, map[string]string{"name": "Plan"}, "If-Match", "99")
	expectStatus(t, rec, http.StatusConflict)

	rec = do(t, srv, http.MethodPatch, "/v1/boards/"+board.UUID, map[string]string{"name": "Plan"}, "If-Match", "1")
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &board)
	if board.Name != "Plan" || board.ETag != 2 {
		t.Fatalf("unexpected updated board: %+v", board)
	}

	rec = do(t, srv, http.MethodGet, "/v1/boards", nil, UserHeader, "alice")
	expectStatus(t, rec, http.StatusOK)
	var list struct {
		Boards []domain.Board `json:"boards"`
	}
	decode(t, rec, &list)
	if len(list.Boards) != 1 {
		t.Fatalf("expected 1 board for alice, got %d", len(list.Boards))
	}

	rec = do(t, srv, http.MethodDelete, "/v1/boards/B-00001", nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = do(t, srv, http.MethodGet, "/v1/boards/B-00001", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestColumnsAndTasks(t *testing.T) {
	srv, s := newFixture(t)
	board, err := s.Boards.Create("alice", store.CreateBoardParams{Name: "Sprint"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}

	for _, title := range []string{"Todo", "Doing", "Done"} {
		rec := do(t, srv, http.MethodPost, "/v1/boards/"+board.ID+"/columns", map[string]string{"title": title})
		expectStatus(t, rec, http.StatusCreated)
	}

	rec := do(t, srv, http.MethodPost, "/v1/columns/C-00001/tasks", map[string]string{"title": "write docs"})
	expectStatus(t, rec, http.StatusCreated)
	var task domain.Task
	decode(t, rec, &task)
	if task.Status != domain.TaskStatusTodo || task.Position != 0 {
		t.Fatalf("unexpected task: %+v", task)
	}

	// Prime the cache, then move a column and expect the view to follow.
	columns := listColumns(t, srv, board.ID)
	if len(columns) != 3 || columns[0].Title != "Todo" {
		t.Fatalf("unexpected columns: %+v", columns)
	}

	rec = do(t, srv, http.MethodPut, "/v1/columns/C-00003/position", map[string]int{"position": 0})
	expectStatus(t, rec, http.StatusOK)
	rec = do(t, srv, http.MethodPut, "/v1/columns/C-00001/position", map[string]int{"position": 1})
	expectStatus(t, rec, http.StatusOK)
	rec = do(t, srv, http.MethodPut, "/v1/columns/C-00002/position", map[string]int{"position": 2})
	expectStatus(t, rec, http.StatusOK)

	columns = listColumns(t, srv, board.ID)
	got := columns[0].Title + "," + columns[1].Title + "," + columns[2].Title
	if got != "Done,Todo,Doing" {
		t.Fatalf("expected reordered columns, got %s", got)
	}

	doing := columns[2].UUID
	rec = do(t, srv, http.MethodPatch, "/v1/tasks/"+task.ID, map[string]any{"column_id": doing, "position": 0})
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &task)
	if task.ColumnUUID != doing {
		t.Fatalf("expected task in Doing, got %s", task.ColumnUUID)
	}

	columns = listColumns(t, srv, board.ID)
	if len(columns[1].Tasks) != 0 || len(columns[2].Tasks) != 1 {
		t.Fatalf("expected task to have moved in the cached view: %+v", columns)
	}

	rec = do(t, srv, http.MethodGet, "/v1/tasks/"+task.UUID, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, srv, http.MethodDelete, "/v1/tasks/"+task.ID, nil)
	expectStatus(t, rec, http.StatusNoContent)
	rec = do(t, srv, http.MethodGet, "/v1/tasks/"+task.ID, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func listColumns(t *testing.T, srv *Server, board string) []domain.Column {
	t.Helper()
	rec := do(t, srv, http.MethodGet, "/v1/boards/"+board+"/columns", nil)
	expectStatus(t, rec, http.StatusOK)
	var resp struct {
		Columns []domain.Column `json:"columns"`
	}
	decode(t, rec, &resp)
	return resp.Columns
}

func TestErrorMapping(t *testing.T) {
	srv, s := newFixture(t)
	board, err := s.Boards.Create("alice", store.CreateBoardParams{Name: "Errors"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if _, err := s.Columns.Create("alice", board.UUID, "Only"); err != nil {
		t.Fatalf("create column: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown task", http.MethodGet, "/v1/tasks/T-00042", nil, http.StatusNotFound},
		{"unknown board", http.MethodGet, "/v1/boards/nope/columns", nil, http.StatusNotFound},
		{"position out of range", http.MethodPut, "/v1/columns/C-00001/position", map[string]int{"position": 3}, http.StatusBadRequest},
		{"position missing", http.MethodPut, "/v1/columns/C-00001/position", map[string]string{}, http.StatusBadRequest},
		{"empty title", http.MethodPost, "/v1/boards/" + board.ID + "/columns", map[string]string{"title": " "}, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/v1/boards/" + board.ID + "/events?limit=x", nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/v1/nothing", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			expectStatus(t, rec, tt.want)
			var body map[string]string
			decode(t, rec, &body)
			if body["message"] == "" {
				t.Fatalf("expected a message, got %s", rec.Body.String())
			}
		})
	}
}

func TestMembersAndEvents(t *testing.T) {
	srv, s := newFixture(t)
	board, err := s.Boards.Create("alice", store.CreateBoardParams{Name: "Team"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}

	rec := do(t, srv, http.MethodPost, "/v1/boards/"+board.ID+"/members", map[string]string{"user_id": "bob"})
	expectStatus(t, rec, http.StatusCreated)
	var member domain.Member
	decode(t, rec, &member)
	if member.Role != domain.MemberRoleMember {
		t.Fatalf("expected member role, got %s", member.Role)
	}

	rec = do(t, srv, http.MethodGet, "/v1/boards/"+board.ID+"/members", nil)
	expectStatus(t, rec, http.StatusOK)
	var members struct {
		Members []domain.Member `json:"members"`
	}
	decode(t, rec, &members)
	if len(members.Members) != 2 || members.Members[0].UserID != "alice" {
		t.Fatalf("unexpected members: %+v", members.Members)
	}

	rec = do(t, srv, http.MethodDelete, "/v1/boards/"+board.ID+"/members/alice", nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, srv, http.MethodDelete, "/v1/boards/"+board.ID+"/members/bob", nil, UserHeader, "bob")
	expectStatus(t, rec, http.StatusForbidden)

	rec = do(t, srv, http.MethodDelete, "/v1/boards/"+board.ID+"/members/bob", nil, UserHeader, "alice")
	expectStatus(t, rec, http.StatusNoContent)

	rec = do(t, srv, http.MethodGet, "/v1/boards/"+board.ID+"/events?limit=1", nil)
	expectStatus(t, rec, http.StatusOK)
	var events struct {
		Events []domain.Event `json:"events"`
	}
	decode(t, rec, &events)
	if len(events.Events) != 1 || events.Events[0].EventType != "member.removed" {
		t.Fatalf("unexpected events: %+v", events.Events)
	}
}
