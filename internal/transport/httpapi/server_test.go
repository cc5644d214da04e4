package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskbot/internal/eventbus"
	"taskbot/internal/notifier"
	rtsup "taskbot/internal/runtime/supervisor"
	"taskbot/internal/storage"
	"taskbot/internal/task"
	"taskbot/internal/task/dialogue"
	"taskbot/internal/task/manager"
	"taskbot/internal/task/scheduler"
	logx "taskbot/pkg/logx"
)

var now0 = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type noReminders struct{}

func (noReminders) Schedule(task.Task) error { return nil }
func (noReminders) Cancel(int64) bool        { return false }

type echoDialogue struct{ last string }

func (d *echoDialogue) Handle(_ context.Context, sessionID, owner, text string) dialogue.Response {
	d.last = sessionID + "|" + owner
	return dialogue.Response{Message: "echo: " + text, AwaitingInput: true, InputType: dialogue.InputTaskName}
}

func (d *echoDialogue) Cancel(string) dialogue.Response { return dialogue.Response{} }

type fixture struct {
	srv   *Server
	tasks *manager.Manager
	inbox *notifier.Service
	dlg   *echoDialogue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tasks := manager.New(storage.NewMemory(), noReminders{}, logx.Nop(), eventbus.Nop(), manager.WithClock(func() time.Time { return now0 }))
	inbox := notifier.New(notifier.Config{}, nil, logx.Nop(), nil)
	dlg := &echoDialogue{}
	srv := New(Deps{
		Dialogue: dlg,
		Tasks:    tasks,
		Inbox:    inbox,
		Health: func() map[string]rtsup.Counters {
			return map[string]rtsup.Counters{"notifier": {Active: 2, Started: 2}}
		},
		Scheduler: func() scheduler.Snapshot {
			return scheduler.Snapshot{Enabled: true, Timezone: "UTC", Fired: 3}
		},
	}, logx.Nop())
	return &fixture{srv: srv, tasks: tasks, inbox: inbox, dlg: dlg}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	out := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: invalid json %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, out
}

func TestCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, out := f.do(t, http.MethodPost, "/api/command", `{"sessionId":"s1","owner":"alice","command":"create task"}`)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out["response"] != "echo: create task" || out["awaitingInput"] != true || out["inputType"] != string(dialogue.InputTaskName) {
		t.Fatalf("unexpected body %v", out)
	}
	if f.dlg.last != "http:s1|alice" {
		t.Fatalf("unexpected session/owner %q", f.dlg.last)
	}

	if code, _ := f.do(t, http.MethodPost, "/api/command", `{"command":"  "}`); code != http.StatusBadRequest {
		t.Fatalf("empty command: status %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/command", `{`); code != http.StatusBadRequest {
		t.Fatalf("bad json: status %d", code)
	}
}

func TestTaskCRUD(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, out := f.do(t, http.MethodPost, "/api/tasks", `{"text":"Call John","owner":"alice","scheduledFor":"2026-03-04T12:00:00Z"}`)
	if code != http.StatusCreated {
		t.Fatalf("create status %d %v", code, out)
	}
	created := out["task"].(map[string]any)
	if created["id"].(float64) != 1 || created["text"] != "Call John" {
		t.Fatalf("unexpected task %v", created)
	}

	if code, _ := f.do(t, http.MethodPost, "/api/tasks", `{"text":"   "}`); code != http.StatusBadRequest {
		t.Fatalf("empty text: status %d", code)
	}
	_, _ = f.do(t, http.MethodPost, "/api/tasks", `{"text":"Buy milk","owner":"bob"}`)

	code, out = f.do(t, http.MethodGet, "/api/tasks?owner=alice", "")
	if code != http.StatusOK || out["count"].(float64) != 1 {
		t.Fatalf("list: %d %v", code, out)
	}

	code, out = f.do(t, http.MethodPut, "/api/tasks/1", `{"text":"Call Jane","completed":true}`)
	if code != http.StatusOK {
		t.Fatalf("update status %d", code)
	}
	updated := out["task"].(map[string]any)
	if updated["text"] != "Call Jane" || updated["completed"] != true {
		t.Fatalf("unexpected update %v", updated)
	}

	code, out = f.do(t, http.MethodGet, "/api/tasks?owner=alice&open=true", "")
	if code != http.StatusOK || out["count"].(float64) != 0 {
		t.Fatalf("open list: %d %v", code, out)
	}

	if code, _ := f.do(t, http.MethodPut, "/api/tasks/1", `{}`); code != http.StatusBadRequest {
		t.Fatalf("empty update: status %d", code)
	}
	if code, _ := f.do(t, http.MethodPut, "/api/tasks/99", `{"text":"x"}`); code != http.StatusNotFound {
		t.Fatalf("missing update: status %d", code)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/tasks/abc", ""); code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d", code)
	}

	if code, _ := f.do(t, http.MethodDelete, "/api/tasks/1", ""); code != http.StatusOK {
		t.Fatalf("delete status %d", code)
	}
	if code, _ := f.do(t, http.MethodDelete, "/api/tasks/1", ""); code != http.StatusNotFound {
		t.Fatalf("second delete status %d", code)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/tasks/1", ""); code != http.StatusNotFound {
		t.Fatalf("get deleted status %d", code)
	}
}

func TestUpcoming(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	at := func(h int) *time.Time { return task.Ptr(now0.Add(time.Duration(h) * time.Hour)) }
	_, _ = f.tasks.Create(ctx, "later", at(30), "alice")
	_, _ = f.tasks.Create(ctx, "soon", at(2), "alice")
	_, _ = f.tasks.Create(ctx, "unscheduled", nil, "alice")

	code, out := f.do(t, http.MethodGet, "/api/tasks/upcoming?owner=alice", "")
	if code != http.StatusOK || out["count"].(float64) != 1 {
		t.Fatalf("default window: %d %v", code, out)
	}

	code, out = f.do(t, http.MethodGet, "/api/tasks/upcoming?owner=alice&hours=48", "")
	if code != http.StatusOK || out["count"].(float64) != 2 {
		t.Fatalf("48h window: %d %v", code, out)
	}
	first := out["tasks"].([]any)[0].(map[string]any)
	if first["text"] != "soon" {
		t.Fatalf("expected soonest first, got %v", first)
	}

	if code, _ := f.do(t, http.MethodGet, "/api/tasks/upcoming?hours=-1", ""); code != http.StatusBadRequest {
		t.Fatalf("negative hours: status %d", code)
	}
}

func TestNotifications(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.inbox.Post(ctx, notifier.Item{Message: "one", Owner: "alice"})
	_, _ = f.inbox.Post(ctx, notifier.Item{Message: "two", Owner: "alice"})
	_, _ = f.inbox.Post(ctx, notifier.Item{Message: "other", Owner: "bob"})

	code, out := f.do(t, http.MethodGet, "/api/notifications?owner=alice", "")
	if code != http.StatusOK || out["count"].(float64) != 2 || out["unread"].(float64) != 2 {
		t.Fatalf("list: %d %v", code, out)
	}

	if code, _ := f.do(t, http.MethodPost, "/api/notifications/"+a.ID+"/read", ""); code != http.StatusOK {
		t.Fatalf("read status %d", code)
	}
	_, out = f.do(t, http.MethodGet, "/api/notifications?owner=alice&unread=true", "")
	if out["count"].(float64) != 1 {
		t.Fatalf("unread list: %v", out)
	}

	if code, _ := f.do(t, http.MethodDelete, "/api/notifications/"+a.ID, ""); code != http.StatusOK {
		t.Fatalf("delete status %d", code)
	}
	if code, _ := f.do(t, http.MethodDelete, "/api/notifications/"+a.ID, ""); code != http.StatusNotFound {
		t.Fatalf("second delete status %d", code)
	}

	_, out = f.do(t, http.MethodPost, "/api/notifications/clear?owner=alice", "")
	if out["cleared"].(float64) != 1 {
		t.Fatalf("clear: %v", out)
	}
	_, out = f.do(t, http.MethodGet, "/api/notifications?owner=bob", "")
	if out["count"].(float64) != 1 {
		t.Fatalf("bob's inbox touched: %v", out)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	code, out := f.do(t, http.MethodGet, "/api/health", "")
	if code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("health: %d %v", code, out)
	}
	comps := out["components"].(map[string]any)
	if _, ok := comps["notifier"]; !ok {
		t.Fatalf("missing component counters: %v", out)
	}
	sched := out["scheduler"].(map[string]any)
	if sched["timezone"] != "UTC" || sched["fired"].(float64) != 3 {
		t.Fatalf("unexpected scheduler snapshot: %v", sched)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sup := rtsup.New(context.Background())

	if err := f.srv.Start(sup, "127.0.0.1:0"); err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := http.Get("http://" + f.srv.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := f.srv.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := sup.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
