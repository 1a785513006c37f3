package webhooks_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/lherron/wrkboard/internal/reconcile"
	"github.com/lherron/wrkboard/internal/webhooks"
)

func TestNewNormalizesURLs(t *testing.T) {
	n := webhooks.New([]string{
		"http://example.com/hook/{board_uuid}",
		"ftp://invalid.example.com/hook",
		"http://example.com/other/",
		"http://example.com/other",
		"  ",
		"not a url",
	})

	expected := []string{
		"http://example.com/hook/{board_uuid}",
		"http://example.com/other",
	}
	if !reflect.DeepEqual(n.URLs(), expected) {
		t.Fatalf("unexpected urls\nexpected: %v\nactual:   %v", expected, n.URLs())
	}
}

func TestNotifyPostsPayload(t *testing.T) {
	var (
		mu     sync.Mutex
		paths  []string
		bodies []webhooks.Payload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var p webhooks.Payload
		if err := sonic.Unmarshal(data, &p); err != nil {
			t.Errorf("bad payload %q: %v", data, err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		mu.Lock()
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := webhooks.New([]string{srv.URL + "/a/{board_uuid}", srv.URL + "/b"})
	n.Notify(reconcile.Notification{
		BoardUUID: "board-1",
		Message:   reconcile.MessageMoveFailed,
		Err:       errors.New("boom"),
	})
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(bodies))
	}
	gotPaths := map[string]bool{}
	for _, p := range paths {
		gotPaths[p] = true
	}
	if !gotPaths["/a/board-1"] || !gotPaths["/b"] {
		t.Errorf("paths = %v", paths)
	}
	for _, b := range bodies {
		if b.BoardUUID != "board-1" || b.Message != reconcile.MessageMoveFailed || b.Error != "boom" {
			t.Errorf("payload = %+v", b)
		}
		if b.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	}
}

func TestNotifyToleratesDeadEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	n := webhooks.New([]string{url})
	n.Notify(reconcile.Notification{BoardUUID: "b", Message: "m"})
	n.Wait()
}

func TestNotifyDoesNotBlockOnSlowEndpoint(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		delivered.Add(1)
	}))
	defer srv.Close()

	n := webhooks.New([]string{srv.URL}, webhooks.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	returned := make(chan struct{})
	go func() {
		n.Notify(reconcile.Notification{BoardUUID: "b", Message: reconcile.MessageMoveFailed})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("Notify blocked on a slow endpoint")
	}
	if delivered.Load() != 0 {
		t.Fatal("delivery finished before the endpoint answered")
	}

	close(release)
	n.Wait()
	if delivered.Load() != 1 {
		t.Fatalf("delivered = %d, want 1", delivered.Load())
	}
}

func TestChain(t *testing.T) {
	var got []string
	first := reconcile.NotifierFunc(func(n reconcile.Notification) { got = append(got, "first:"+n.Message) })
	second := reconcile.NotifierFunc(func(n reconcile.Notification) { got = append(got, "second:"+n.Message) })

	webhooks.Chain(first, second).Notify(reconcile.Notification{Message: "x"})

	if !reflect.DeepEqual(got, []string{"first:x", "second:x"}) {
		t.Errorf("got %v", got)
	}
}
