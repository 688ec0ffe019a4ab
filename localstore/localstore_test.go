package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/pomodoro"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "todo.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskMirror(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	second := models.Task{ID: "b", UserID: "u1", Text: "second", CreatedAt: base.Add(time.Minute)}
	first := models.Task{ID: "a", UserID: "u1", Text: "first", CreatedAt: base, Tags: []string{"x"}}
	other := models.Task{ID: "c", UserID: "u2", Text: "not mine", CreatedAt: base}
	for _, task := range []models.Task{second, first, other} {
		task := task
		if err := s.PutTask(ctx, &task); err != nil {
			t.Fatalf("PutTask: %v", err)
		}
	}

	tasks, err := s.Tasks(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].ID != "a" || tasks[1].ID != "b" {
		t.Fatalf("tasks = %+v", tasks)
	}

	first.Text = "first, edited"
	if err := s.PutTask(ctx, &first); err != nil {
		t.Fatal(err)
	}
	got, err := s.Task(ctx, "u1", "a")
	if err != nil || got.Text != "first, edited" || len(got.Tags) != 1 {
		t.Fatalf("Task = %+v, %v", got, err)
	}

	if _, err := s.Task(ctx, "u1", "c"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user's task err = %v", err)
	}

	if err := s.DeleteTask(ctx, "u1", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Task(ctx, "u1", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted task err = %v", err)
	}
}

func TestReplaceTasks(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	old := models.Task{ID: "old", UserID: "u1", Text: "stale"}
	if err := s.PutTask(ctx, &old); err != nil {
		t.Fatal(err)
	}

	if err := s.ReplaceTasks(ctx, "u1", []models.Task{{ID: "n1", Text: "fresh"}}); err != nil {
		t.Fatal(err)
	}
	tasks, err := s.Tasks(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != "n1" || tasks[0].UserID != "u1" {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestPendingQueueOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	kinds := []OpKind{OpCreate, OpUpdate, OpStatus, OpDelete}
	for _, k := range kinds {
		op := &Op{UserID: "u1", Kind: k, TaskID: "t1", Payload: json.RawMessage(`{"k":"` + string(k) + `"}`)}
		if err := s.Enqueue(ctx, op); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		if op.ID == "" {
			t.Fatal("Enqueue did not assign an id")
		}
	}
	if err := s.Enqueue(ctx, &Op{UserID: "u2", Kind: OpCreate, TaskID: "x"}); err != nil {
		t.Fatal(err)
	}

	ops, err := s.Pending(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != len(kinds) {
		t.Fatalf("pending = %d, want %d", len(ops), len(kinds))
	}
	for i, op := range ops {
		if op.Kind != kinds[i] {
			t.Errorf("ops[%d].Kind = %s, want %s", i, op.Kind, kinds[i])
		}
	}

	if err := s.MarkAttempt(ctx, ops[0].ID, errors.New("dial tcp: refused")); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveOp(ctx, ops[1].ID); err != nil {
		t.Fatal(err)
	}
	ops, _ = s.Pending(ctx, "u1")
	if len(ops) != 3 || ops[0].Attempts != 1 || ops[0].LastError != "dial tcp: refused" {
		t.Fatalf("after attempt: %+v", ops)
	}
	if n, _ := s.PendingCount(ctx, "u1"); n != 3 {
		t.Errorf("PendingCount = %d", n)
	}
}

func TestRejectRecordsError(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	op := &Op{UserID: "u1", Kind: OpDelete, TaskID: "t1"}
	if err := s.Enqueue(ctx, op); err != nil {
		t.Fatal(err)
	}

	if err := s.Reject(ctx, *op, errors.New("server returned 400: bad")); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.PendingCount(ctx, "u1"); n != 0 {
		t.Errorf("rejected op still pending")
	}
	errs, err := s.SyncErrors(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 || errs[0].OpID != op.ID || errs[0].Kind != OpDelete || errs[0].Message != "server returned 400: bad" {
		t.Fatalf("sync errors = %+v", errs)
	}

	if err := s.ClearSyncErrors(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if errs, _ := s.SyncErrors(ctx, "u1"); len(errs) != 0 {
		t.Errorf("errors not cleared: %+v", errs)
	}
}

func TestClearUser(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	for _, uid := range []string{"u1", "u2"} {
		if err := s.PutTask(ctx, &models.Task{ID: "t", UserID: uid, Text: "x"}); err != nil {
			t.Fatal(err)
		}
		if err := s.Enqueue(ctx, &Op{UserID: uid, Kind: OpCreate, TaskID: "t"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetDarkMode(ctx, true); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearUser(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if tasks, _ := s.Tasks(ctx, "u1"); len(tasks) != 0 {
		t.Errorf("u1 tasks left: %+v", tasks)
	}
	if n, _ := s.PendingCount(ctx, "u1"); n != 0 {
		t.Errorf("u1 ops left: %d", n)
	}
	if tasks, _ := s.Tasks(ctx, "u2"); len(tasks) != 1 {
		t.Errorf("u2 mirror touched")
	}
	if p, _ := s.Prefs(ctx); !p.DarkMode {
		t.Error("device preferences must survive logout")
	}
}

func TestPrefs(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	p, err := s.Prefs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p != DefaultPrefs() || p.Language != "tr" || p.ViewMode != "list" {
		t.Fatalf("defaults = %+v", p)
	}

	if err := s.SetLanguage(ctx, "de"); err == nil {
		t.Error("unsupported language accepted")
	}
	if err := s.SetViewMode(ctx, "grid"); err == nil {
		t.Error("unknown view mode accepted")
	}
	if err := s.SetPomodoroSettings(ctx, pomodoro.Settings{WorkTime: 0}); err == nil {
		t.Error("invalid pomodoro settings accepted")
	}

	if err := s.SetLanguage(ctx, "en"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetViewMode(ctx, "board"); err != nil {
		t.Fatal(err)
	}
	custom := pomodoro.Settings{WorkTime: 50, ShortBreakTime: 10, LongBreakTime: 30, CyclesBeforeLongBreak: 3}
	if err := s.SetPomodoroSettings(ctx, custom); err != nil {
		t.Fatal(err)
	}

	p, err = s.Prefs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p.Language != "en" || p.ViewMode != "board" || p.Pomodoro != custom {
		t.Errorf("prefs = %+v", p)
	}
}

func TestPrefsIgnoreCorruptValues(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	s.SetPref(ctx, PrefPomodoro, "{not json")
	s.SetPref(ctx, PrefViewMode, "spiral")

	p, err := s.Prefs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p.Pomodoro != pomodoro.DefaultSettings() || p.ViewMode != "list" {
		t.Errorf("prefs = %+v", p)
	}
}
