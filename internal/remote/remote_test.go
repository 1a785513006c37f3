package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lherron/wrkboard/internal/api"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/reconcile"
	"github.com/lherron/wrkboard/internal/store"
	"github.com/lherron/wrkboard/internal/testutil"
)

func setupStore(t *testing.T) (*store.Store, *domain.Board) {
	t.Helper()
	s := testutil.TempStore(t)
	return s, testutil.SeedBoard(t, s, "alice", "Remote", "Todo:a,b | Doing:c | Done:")
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger
}

func runMove(t *testing.T, r reconcile.Remote, boardUUID string, build func(e *reconcile.Engine) domain.MoveEvent) reconcile.Outcome {
	t.Helper()
	ctx := context.Background()
	engine := reconcile.New(r, reconcile.WithLogger(quietLogger()))
	defer engine.Close()
	if err := engine.Load(ctx, boardUUID); err != nil {
		t.Fatalf("load: %v", err)
	}
	receipt, err := engine.HandleMove(ctx, build(engine))
	if err != nil {
		t.Fatalf("handle move: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	outcome, err := receipt.Wait(waitCtx)
	if err != nil && outcome != reconcile.RolledBack {
		t.Fatalf("wait: %v", err)
	}
	return outcome
}

// moveTask moves the named task to index in the named column.
func moveTask(title, column string, index int) func(e *reconcile.Engine) domain.MoveEvent {
	return func(e *reconcile.Engine) domain.MoveEvent {
		snap := e.Snapshot()
		for _, col := range snap.Columns {
			for i, task := range col.Tasks {
				if task.Title != title {
					continue
				}
				dst, _ := findColumn(snap.Columns, column)
				return domain.MoveEvent{
					Kind:        domain.ItemKindTask,
					ItemUUID:    task.UUID,
					Source:      domain.Location{ContainerUUID: col.UUID, Index: i},
					Destination: &domain.Location{ContainerUUID: dst, Index: index},
				}
			}
		}
		return domain.MoveEvent{}
	}
}

func findColumn(columns []domain.Column, title string) (string, int) {
	for i, c := range columns {
		if c.Title == title {
			return c.UUID, i
		}
	}
	return "", -1
}

func TestLocal_MoveThroughEngine(t *testing.T) {
	s, board := setupStore(t)
	local := NewLocal(s, "alice")

	outcome := runMove(t, local, board.UUID, moveTask("a", "Doing", 1))
	if outcome != reconcile.Applied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if got, want := testutil.Layout(t, s, board.UUID), "Todo:b | Doing:c,a | Done:"; got != want {
		t.Fatalf("layout = %q, want %q", got, want)
	}

	outcome = runMove(t, local, board.UUID, func(e *reconcile.Engine) domain.MoveEvent {
		uuid, from := findColumn(e.Snapshot().Columns, "Done")
		return domain.MoveEvent{
			Kind:        domain.ItemKindColumn,
			ItemUUID:    uuid,
			Source:      domain.Location{ContainerUUID: board.UUID, Index: from},
			Destination: &domain.Location{ContainerUUID: board.UUID, Index: 0},
		}
	})
	if outcome != reconcile.Applied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if got, want := testutil.Layout(t, s, board.UUID), "Done: | Todo:b | Doing:c,a"; got != want {
		t.Fatalf("layout = %q, want %q", got, want)
	}
}

func TestLocal_CancelledContext(t *testing.T) {
	s, board := setupStore(t)
	local := NewLocal(s, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := local.FetchColumns(ctx, board.UUID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func newServer(t *testing.T, s *store.Store) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.New(s, api.Options{Token: "tok", Logger: quietLogger()}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_MoveThroughEngine(t *testing.T) {
	s, board := setupStore(t)
	srv := newServer(t, s)
	client := NewClient(srv.URL, "tok", "bob")

	b, err := client.ResolveBoard(context.Background(), board.ID)
	if err != nil {
		t.Fatalf("resolve board: %v", err)
	}
	if b.UUID != board.UUID {
		t.Fatalf("resolved %s, want %s", b.UUID, board.UUID)
	}

	outcome := runMove(t, client, board.UUID, moveTask("c", "Todo", 0))
	if outcome != reconcile.Applied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if got, want := testutil.Layout(t, s, board.UUID), "Todo:c,a,b | Doing: | Done:"; got != want {
		t.Fatalf("layout = %q, want %q", got, want)
	}

	task, err := client.FetchTask(context.Background(), "T-00003")
	if err != nil {
		t.Fatalf("fetch task: %v", err)
	}
	if task.Title != "c" || task.Position != 0 {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestClient_StatusErrors(t *testing.T) {
	s, board := setupStore(t)
	srv := newServer(t, s)

	_, err := NewClient(srv.URL, "wrong", "").FetchBoard(context.Background(), board.UUID)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized || se.Message != "unauthorized" {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}

	client := NewClient(srv.URL, "tok", "")
	_, err = client.UpdateColumnPosition(context.Background(), "C-00001", 9)
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
}

func TestClient_FailedWriteRollsBack(t *testing.T) {
	s, board := setupStore(t)
	srv := newServer(t, s)
	client := NewClient(srv.URL, "tok", "")

	var notes []reconcile.Notification
	engine := reconcile.New(client,
		reconcile.WithLogger(quietLogger()),
		reconcile.WithNotifier(reconcile.NotifierFunc(func(n reconcile.Notification) {
			notes = append(notes, n)
		})),
	)
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Load(ctx, board.UUID); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Another writer removes the task between load and persist.
	ev := moveTask("a", "Done", 0)(engine)
	if err := s.Tasks.Delete("alice", ev.ItemUUID, 0); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	receipt, err := engine.HandleMove(ctx, ev)
	if err != nil {
		t.Fatalf("handle move: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	outcome, err := receipt.Wait(waitCtx)
	if outcome != reconcile.RolledBack || err == nil {
		t.Fatalf("expected rollback, got %s (%v)", outcome, err)
	}

	snap := engine.Snapshot()
	if len(snap.Columns[0].Tasks) != 1 || snap.Columns[0].Tasks[0].Title != "b" {
		t.Fatalf("expected reloaded state without the deleted task: %+v", snap.Columns[0].Tasks)
	}
	if len(notes) != 1 || notes[0].Message != reconcile.MessageMoveFailed {
		t.Fatalf("expected one move-failed notification, got %+v", notes)
	}
}
