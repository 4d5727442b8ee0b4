package debugserver

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/me/cosched/pkg/sched"
)

// fakeSnapshotter returns a fixed snapshot, standing in for a live
// scheduler's Snapshot() without needing a running dispatch loop.
type fakeSnapshotter struct {
	snap []sched.TaskSnapshot
}

func (f fakeSnapshotter) Snapshot() []sched.TaskSnapshot { return f.snap }

func testServer(snap []sched.TaskSnapshot) *Server {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(fakeSnapshotter{snap: snap}, logger)
}

// testEnvelope mirrors the server's JSON response shape for decoding in tests.
type testEnvelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

func doGet(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v, body=%s", err, w.Body.String())
	}
	return w, env
}

func sampleTasks() []sched.TaskSnapshot {
	return []sched.TaskSnapshot{
		{Handle: 0, State: sched.StateReady, Timeout: 0},
		{Handle: 1, State: sched.StateWaiting, Timeout: 120},
	}
}

func TestHealthzReturnsOK(t *testing.T) {
	srv := testServer(nil)
	w, env := doGet(t, srv, "/healthz")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if env.Status != "ok" {
		t.Errorf("Status = %q, want ok", env.Status)
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["status"] != "healthy" {
		t.Errorf("health status = %v, want healthy", data["status"])
	}
}

func TestListTasksReturnsSnapshot(t *testing.T) {
	srv := testServer(sampleTasks())
	w, env := doGet(t, srv, "/tasks/")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	var tasks []sched.TaskSnapshot
	if err := json.Unmarshal(env.Data, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
}

func TestGetTaskReturnsMatchingHandle(t *testing.T) {
	srv := testServer(sampleTasks())
	w, env := doGet(t, srv, "/tasks/1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	var task sched.TaskSnapshot
	if err := json.Unmarshal(env.Data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.Handle != 1 || task.Timeout != 120 {
		t.Errorf("task = %+v, want handle 1 timeout 120", task)
	}
}

func TestGetTaskUnknownHandleReturns404(t *testing.T) {
	srv := testServer(sampleTasks())
	w, _ := doGet(t, srv, "/tasks/99")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetTaskNonIntegerHandleReturns400(t *testing.T) {
	srv := testServer(sampleTasks())
	w, _ := doGet(t, srv, "/tasks/not-a-number")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	srv := testServer(nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header not set")
	}
}
