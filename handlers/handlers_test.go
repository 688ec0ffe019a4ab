package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/store"
	"github.com/erntsn/todo-app/utils"
	"golang.org/x/crypto/bcrypt"
)

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type memTasks struct {
	mu    sync.Mutex
	tasks map[string]models.Task
	order []string
	// listErr forces List to fail.
	listErr error
}

func newMemTasks(tasks ...models.Task) *memTasks {
	m := &memTasks{tasks: map[string]models.Task{}}
	for _, t := range tasks {
		m.tasks[t.ID] = t
		m.order = append(m.order, t.ID)
	}
	return m
}

func (m *memTasks) List(ctx context.Context, userID string) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Task{}
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok && t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTasks) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (m *memTasks) Insert(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return store.ErrDuplicate
	}
	m.tasks[task.ID] = *task
	m.order = append(m.order, task.ID)
	return nil
}

func (m *memTasks) Replace(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.tasks[task.ID]
	if !ok || old.UserID != task.UserID {
		return store.ErrNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memTasks) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) Tags(ctx context.Context, userID string) ([]string, error) {
	tasks, _ := m.List(ctx, userID)
	tags := models.DistinctTags(tasks)
	sort.Strings(tags)
	return tags, nil
}

type memUsers struct {
	byID         map[string]models.User
	lastLoginErr error
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	for _, u := range m.byID {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	m.byID[user.ID] = *user
	return nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.lastLoginErr != nil {
		return m.lastLoginErr
	}
	u := m.byID[id]
	u.LastLogin = at
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = hash
	u.PasswordChangedAt = at
	m.byID[id] = u
	return nil
}

type testServer struct {
	router http.Handler
	tasks  *memTasks
	users  *memUsers
	tokens *utils.TokenIssuer
	token  string
	// issuedAt is the token clock, a minute behind the handlers by default.
	issuedAt time.Time
}

func newTestServer(t *testing.T, tasks ...models.Task) *testServer {
	t.Helper()
	ts := &testServer{
		tasks:    newMemTasks(tasks...),
		users:    &memUsers{byID: map[string]models.User{"u1": {ID: "u1", Email: "u1@example.com"}}},
		issuedAt: fixedNow.Add(-time.Minute),
	}
	ts.tokens = utils.NewTokenIssuer("test-secret", time.Hour).WithClock(func() time.Time { return ts.issuedAt })
	h := NewHandler(ts.tasks)
	h.Now = func() time.Time { return fixedNow }
	auth := NewAuthHandler(ts.users, ts.tokens)
	auth.Now = h.Now
	auth.Cost = bcrypt.MinCost
	ts.router = NewRouter(h, auth)

	token, err := ts.tokens.GenerateJwt("u1")
	if err != nil {
		t.Fatalf("GenerateJwt: %v", err)
	}
	ts.token = token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func task(id, text string) models.Task {
	return models.Task{
		ID:       id,
		UserID:   "u1",
		Text:     text,
		Status:   models.StatusTodo,
		Priority: models.PriorityMedium,
		Category: models.CategoryOther,
		Tags:     []string{},
	}
}

func TestCheck(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""
	rec := ts.do(t, http.MethodGet, "/check", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestTasksRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""
	rec := ts.do(t, http.MethodGet, "/tasks", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateTask(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]interface{}
		wantCode int
	}{
		{
			name:     "Given text only When created Then defaults are filled",
			body:     map[string]interface{}{"text": "  buy milk "},
			wantCode: http.StatusCreated,
		},
		{
			name:     "Given blank text When created Then 400",
			body:     map[string]interface{}{"text": "  "},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "Given unknown priority When created Then 400",
			body:     map[string]interface{}{"text": "x", "priority": "urgent"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "Given zero recurrence value When created Then 400",
			body:     map[string]interface{}{"text": "x", "date": "2026-03-10", "recurring": map[string]interface{}{"type": "daily", "value": 0}},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodPost, "/tasks", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusCreated {
				return
			}
			var got models.Task
			decode(t, rec, &got)
			if got.ID == "" || got.UserID != "u1" {
				t.Errorf("id/user = %q/%q", got.ID, got.UserID)
			}
			if got.Text != "buy milk" || got.Priority != models.PriorityMedium ||
				got.Category != models.CategoryOther || got.Status != models.StatusTodo {
				t.Errorf("unexpected defaults: %+v", got)
			}
			if !got.CreatedAt.Equal(fixedNow) {
				t.Errorf("createdAt = %v", got.CreatedAt)
			}
		})
	}
}

func TestCreateTaskReconcilesStatusFlags(t *testing.T) {
	tests := []struct {
		name          string
		body          map[string]interface{}
		wantStatus    models.Status
		wantCompleted bool
		wantProgress  bool
	}{
		{
			name:          "Given status done only When created Then the task is completed",
			body:          map[string]interface{}{"text": "x", "status": "done"},
			wantStatus:    models.StatusDone,
			wantCompleted: true,
		},
		{
			name:       "Given completed with status todo When created Then the status wins",
			body:       map[string]interface{}{"text": "y", "completed": true, "status": "todo"},
			wantStatus: models.StatusTodo,
		},
		{
			name:         "Given status inProgress When created Then inProgress is set",
			body:         map[string]interface{}{"text": "z", "status": "inProgress", "completed": true},
			wantStatus:   models.StatusInProgress,
			wantProgress: true,
		},
		{
			name:          "Given completed without status When created Then status is done",
			body:          map[string]interface{}{"text": "w", "completed": true},
			wantStatus:    models.StatusDone,
			wantCompleted: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodPost, "/tasks", tt.body)
			if rec.Code != http.StatusCreated {
				t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
			}
			var got models.Task
			decode(t, rec, &got)
			if got.Status != tt.wantStatus || got.Completed != tt.wantCompleted || got.InProgress != tt.wantProgress {
				t.Errorf("status/completed/inProgress = %q/%v/%v", got.Status, got.Completed, got.InProgress)
			}
			if tt.wantCompleted && (got.CompletedAt == nil || !got.CompletedAt.Equal(fixedNow)) {
				t.Errorf("completedAt = %v, want %v", got.CompletedAt, fixedNow)
			}
			if !tt.wantCompleted && got.CompletedAt != nil {
				t.Errorf("completedAt = %v, want nil", got.CompletedAt)
			}
		})
	}
}

func TestCreateTaskKeepsClientID(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/tasks", map[string]interface{}{"id": "client-1", "text": "a"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/tasks", map[string]interface{}{"id": "client-1", "text": "a"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("replayed create status = %d, want 409", rec.Code)
	}
}

func TestListTasksFilters(t *testing.T) {
	done := task("t2", "Pay rent")
	done.Completed = true
	done.Status = models.StatusDone
	done.Category = models.CategoryFinance
	work := task("t1", "Write report")
	work.Category = models.CategoryWork
	work.Tags = []string{"q1"}
	other := task("t3", "other user")
	other.UserID = "u2"
	ts := newTestServer(t, work, done, other)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"Given no filter When listed Then own tasks only", "", []string{"t1", "t2"}},
		{"Given completed filter When listed Then done tasks", "?filter=completed", []string{"t2"}},
		{"Given active filter When listed Then open tasks", "?filter=active", []string{"t1"}},
		{"Given category When listed Then matching category", "?category=finance", []string{"t2"}},
		{"Given tag When listed Then tagged tasks", "?tag=q1", []string{"t1"}},
		{"Given search When listed Then text matches", "?q=RENT", []string{"t2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/tasks"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var got []models.Task
			decode(t, rec, &got)
			var ids []string
			for _, g := range got {
				ids = append(ids, g.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", ids, tt.want)
				}
			}
		})
	}
}

func TestListTasksStoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.tasks.listErr = errors.New("connection reset")
	rec := ts.do(t, http.MethodGet, "/tasks", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var got utils.ErrorResponse
	decode(t, rec, &got)
	if got.Error != "failed to fetch tasks" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestGetTaskOfOtherUser(t *testing.T) {
	other := task("t9", "secret")
	other.UserID = "u2"
	ts := newTestServer(t, other)
	rec := ts.do(t, http.MethodGet, "/tasks/t9", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestToggleRecurringTaskSpawnsNext(t *testing.T) {
	rec := task("t1", "Water plants")
	rec.Date = "2026-01-31"
	rec.Recurring = &models.Recurrence{Type: models.RecurMonthly, Value: 1}
	rec.Subtasks = []models.Subtask{{ID: "s1", Text: "fern", Completed: true}}
	ts := newTestServer(t, rec)

	resp := ts.do(t, http.MethodPost, "/tasks/t1/toggle", models.StatusRequest{NextID: "n1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.Code, resp.Body.String())
	}
	var change models.TaskChange
	decode(t, resp, &change)
	if !change.Task.Completed || change.Task.Status != models.StatusDone || change.Task.CompletedAt == nil {
		t.Errorf("task not completed: %+v", change.Task)
	}
	if change.Next == nil {
		t.Fatal("expected next occurrence")
	}
	if change.Next.ID != "n1" || change.Next.Date != "2026-03-03" || change.Next.Completed {
		t.Errorf("next = %+v", change.Next)
	}
	if len(change.Next.Subtasks) != 1 || change.Next.Subtasks[0].Completed {
		t.Errorf("next subtasks not reset: %+v", change.Next.Subtasks)
	}

	// Toggling back must not spawn another occurrence.
	resp = ts.do(t, http.MethodPost, "/tasks/t1/toggle", nil)
	decode(t, resp, &change)
	if change.Task.Completed || change.Next != nil {
		t.Errorf("untoggle = %+v", change)
	}
}

func TestUpdateStatusIsIdempotent(t *testing.T) {
	rec := task("t1", "Stretch")
	rec.Date = "2026-03-10"
	rec.Recurring = &models.Recurrence{Type: models.RecurDaily, Value: 2}
	ts := newTestServer(t, rec)

	for i := 0; i < 2; i++ {
		resp := ts.do(t, http.MethodPut, "/tasks/t1/status", models.StatusRequest{Status: "done", NextID: "n1"})
		if resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: status = %d", i, resp.Code)
		}
	}
	tasks, _ := ts.tasks.List(context.Background(), "u1")
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want original plus one occurrence", len(tasks))
	}
	if tasks[1].Date != "2026-03-12" {
		t.Errorf("next date = %q", tasks[1].Date)
	}
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		wantCode   int
		wantStatus models.Status
		wantInProg bool
	}{
		{"Given inProgress When set Then in progress flag", "inProgress", http.StatusOK, models.StatusInProgress, true},
		{"Given completed alias When set Then done", "completed", http.StatusOK, models.StatusDone, false},
		{"Given backlog When set Then backlog", "backlog", http.StatusOK, models.StatusBacklog, false},
		{"Given unknown status When set Then 400", "archived", http.StatusBadRequest, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, task("t1", "x"))
			resp := ts.do(t, http.MethodPut, "/tasks/t1/status", models.StatusRequest{Status: tt.status})
			if resp.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var change models.TaskChange
			decode(t, resp, &change)
			if change.Task.Status != tt.wantStatus || change.Task.InProgress != tt.wantInProg {
				t.Errorf("task = %+v", change.Task)
			}
		})
	}
}

func TestUpdateTaskReplacesEditableFields(t *testing.T) {
	existing := task("t1", "old")
	existing.CreatedAt = fixedNow.Add(-time.Hour)
	ts := newTestServer(t, existing)

	body := task("t1", "new")
	body.UserID = "someone-else"
	body.Priority = models.PriorityHigh
	body.Tags = []string{"Home", "home"}
	body.Status = models.StatusDone
	resp := ts.do(t, http.MethodPut, "/tasks/t1", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.Code, resp.Body.String())
	}
	var change models.TaskChange
	decode(t, resp, &change)
	got := change.Task
	if got.UserID != "u1" || !got.CreatedAt.Equal(existing.CreatedAt) {
		t.Errorf("identity changed: %+v", got)
	}
	if got.Text != "new" || got.Priority != models.PriorityHigh || len(got.Tags) != 1 || got.Tags[0] != "home" {
		t.Errorf("edit not applied: %+v", got)
	}
	if !got.Completed {
		t.Error("status change not applied")
	}
}

func TestPatchTask(t *testing.T) {
	ts := newTestServer(t, task("t1", "old"))

	resp := ts.do(t, http.MethodPatch, "/tasks/t1", map[string]interface{}{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("empty patch status = %d, want 400", resp.Code)
	}

	resp = ts.do(t, http.MethodPatch, "/tasks/t1", map[string]interface{}{"notes": "call first"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var change models.TaskChange
	decode(t, resp, &change)
	if change.Task.Notes != "call first" || change.Task.Text != "old" {
		t.Errorf("task = %+v", change.Task)
	}
}

func TestDeleteTask(t *testing.T) {
	ts := newTestServer(t, task("t1", "x"))
	if resp := ts.do(t, http.MethodDelete, "/tasks/t1", nil); resp.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.Code)
	}
	if resp := ts.do(t, http.MethodDelete, "/tasks/t1", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.Code)
	}
}

func TestSubtaskEndpoints(t *testing.T) {
	ts := newTestServer(t, task("t1", "Trip"))

	resp := ts.do(t, http.MethodPost, "/tasks/t1/subtasks", models.SubtaskRequest{ID: "s1", Text: "tickets"})
	if resp.Code != http.StatusOK {
		t.Fatalf("add status = %d", resp.Code)
	}
	resp = ts.do(t, http.MethodPost, "/tasks/t1/subtasks", models.SubtaskRequest{ID: "s1", Text: "again"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("duplicate add status = %d, want 400", resp.Code)
	}
	resp = ts.do(t, http.MethodPost, "/tasks/t1/subtasks/s1/toggle", nil)
	var change models.TaskChange
	decode(t, resp, &change)
	if len(change.Task.Subtasks) != 1 || !change.Task.Subtasks[0].Completed {
		t.Fatalf("subtasks = %+v", change.Task.Subtasks)
	}
	if resp := ts.do(t, http.MethodPost, "/tasks/t1/subtasks/nope/toggle", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("missing subtask status = %d, want 404", resp.Code)
	}
	resp = ts.do(t, http.MethodDelete, "/tasks/t1/subtasks/s1", nil)
	decode(t, resp, &change)
	if len(change.Task.Subtasks) != 0 {
		t.Fatalf("subtasks = %+v", change.Task.Subtasks)
	}
}

func TestListTags(t *testing.T) {
	a := task("t1", "a")
	a.Tags = []string{"work", "q1"}
	b := task("t2", "b")
	b.Tags = []string{"home"}
	ts := newTestServer(t, a, b)
	resp := ts.do(t, http.MethodGet, "/tags", nil)
	var tags []string
	decode(t, resp, &tags)
	want := []string{"home", "q1", "work"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v", tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags = %v, want %v", tags, want)
		}
	}
}

func TestCalendarQuery(t *testing.T) {
	due := task("t1", "dentist")
	due.Date = "2026-02-14"
	ts := newTestServer(t, due)

	tests := []struct {
		name     string
		query    string
		wantCode int
	}{
		{"Given no query When fetched Then current month", "", http.StatusOK},
		{"Given explicit month When fetched Then ok", "?year=2026&month=2", http.StatusOK},
		{"Given month 13 When fetched Then 400", "?year=2026&month=13", http.StatusBadRequest},
		{"Given bad year When fetched Then 400", "?year=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/calendar"+tt.query, nil)
			if resp.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestBoardAndStats(t *testing.T) {
	done := task("t1", "done")
	done.Completed = true
	done.Status = models.StatusDone
	completedAt := fixedNow
	done.CompletedAt = &completedAt
	late := task("t2", "late")
	late.Date = "2026-03-01"
	ts := newTestServer(t, done, late)

	resp := ts.do(t, http.MethodGet, "/board", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("board status = %d", resp.Code)
	}

	resp = ts.do(t, http.MethodGet, "/stats", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("stats status = %d", resp.Code)
	}
	var got struct {
		Overdue struct {
			Count      int `json:"count"`
			Percentage int `json:"percentage"`
		} `json:"overdue"`
	}
	decode(t, resp, &got)
	if got.Overdue.Count != 1 || got.Overdue.Percentage != 100 {
		t.Errorf("overdue = %+v", got.Overdue)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	resp := ts.do(t, http.MethodPost, "/register", AuthRequest{Email: "Ada@Example.com", Password: "secret1", DisplayName: "Ada"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register status = %d (%s)", resp.Code, resp.Body.String())
	}
	if bytes.Contains(resp.Body.Bytes(), []byte("password")) {
		t.Error("register response leaks the password hash")
	}

	resp = ts.do(t, http.MethodPost, "/register", AuthRequest{Email: "ada@example.com", Password: "secret1"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.Code)
	}

	tests := []struct {
		name     string
		req      AuthRequest
		wantCode int
		wantErr  string
	}{
		{"Given unknown email When login Then 401", AuthRequest{Email: "bob@example.com", Password: "secret1"}, http.StatusUnauthorized, "User not found"},
		{"Given wrong password When login Then 401", AuthRequest{Email: "ada@example.com", Password: "nope123"}, http.StatusUnauthorized, "Invalid Credentials"},
		{"Given valid credentials When login Then token", AuthRequest{Email: "ada@example.com", Password: "secret1"}, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/login", tt.req)
			if resp.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.Code, tt.wantCode)
			}
			if tt.wantErr != "" {
				var e utils.ErrorResponse
				decode(t, resp, &e)
				if e.Error != tt.wantErr {
					t.Errorf("error = %q, want %q", e.Error, tt.wantErr)
				}
				return
			}
			var lr LoginResponse
			decode(t, resp, &lr)
			userID, err := ts.tokens.ValidateJwt(lr.Token)
			if err != nil || userID != lr.User.ID {
				t.Errorf("token user = %q, %v", userID, err)
			}
			if !lr.User.LastLogin.Equal(fixedNow) {
				t.Errorf("lastLogin = %v", lr.User.LastLogin)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)
	for _, req := range []AuthRequest{
		{Email: "", Password: "secret1"},
		{Email: "not-an-email", Password: "secret1"},
		{Email: "a@b.c", Password: "short"},
	} {
		if resp := ts.do(t, http.MethodPost, "/register", req); resp.Code != http.StatusBadRequest {
			t.Errorf("register %+v status = %d, want 400", req, resp.Code)
		}
	}
}

func TestLoginSurvivesLastLoginFailure(t *testing.T) {
	ts := newTestServer(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	ts.users.byID["u1"] = models.User{ID: "u1", Email: "ada@example.com", Password: string(hash)}
	ts.users.lastLoginErr = errors.New("write conflict")

	resp := ts.do(t, http.MethodPost, "/login", AuthRequest{Email: "ada@example.com", Password: "secret1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
}

func TestPasswordReset(t *testing.T) {
	ts := newTestServer(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	ts.users.byID["u1"] = models.User{ID: "u1", Email: "ada@example.com", Password: string(hash)}

	for _, email := range []string{"ada@example.com", "nobody@example.com"} {
		resp := ts.do(t, http.MethodPost, "/password/reset", AuthRequest{Email: email})
		if resp.Code != http.StatusAccepted {
			t.Fatalf("reset %s status = %d, want 202", email, resp.Code)
		}
	}

	// A session token must not be accepted as a reset token.
	resp := ts.do(t, http.MethodPost, "/password/confirm", ResetConfirmRequest{Token: ts.token, Password: "newpass"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("confirm with session token status = %d, want 401", resp.Code)
	}

	reset, err := ts.tokens.GenerateResetToken("u1")
	if err != nil {
		t.Fatal(err)
	}
	resp = ts.do(t, http.MethodPost, "/password/confirm", ResetConfirmRequest{Token: reset, Password: "newpass"})
	if resp.Code != http.StatusOK {
		t.Fatalf("confirm status = %d (%s)", resp.Code, resp.Body.String())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ts.users.byID["u1"].Password), []byte("newpass")); err != nil {
		t.Errorf("password not updated: %v", err)
	}
}

func TestPasswordResetRetiresOldTokens(t *testing.T) {
	ts := newTestServer(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	ts.users.byID["u1"] = models.User{ID: "u1", Email: "ada@example.com", Password: string(hash)}

	reset, err := ts.tokens.GenerateResetToken("u1")
	if err != nil {
		t.Fatal(err)
	}
	resp := ts.do(t, http.MethodPost, "/password/confirm", ResetConfirmRequest{Token: reset, Password: "newpass"})
	if resp.Code != http.StatusOK {
		t.Fatalf("confirm status = %d (%s)", resp.Code, resp.Body.String())
	}
	if got := ts.users.byID["u1"].PasswordChangedAt; !got.Equal(fixedNow) {
		t.Errorf("passwordChangedAt = %v, want %v", got, fixedNow)
	}

	t.Run("Given a used reset token When confirmed again Then 401", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/password/confirm", ResetConfirmRequest{Token: reset, Password: "attacker"})
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.Code)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(ts.users.byID["u1"].Password), []byte("newpass")); err != nil {
			t.Errorf("password changed by a spent token: %v", err)
		}
	})

	t.Run("Given a session from before the reset When used Then 401", func(t *testing.T) {
		if resp := ts.do(t, http.MethodGet, "/tasks", nil); resp.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.Code)
		}
	})

	t.Run("Given a login after the reset When used Then accepted", func(t *testing.T) {
		ts.issuedAt = fixedNow.Add(time.Minute)
		ts.token = ""
		resp := ts.do(t, http.MethodPost, "/login", AuthRequest{Email: "ada@example.com", Password: "newpass"})
		if resp.Code != http.StatusOK {
			t.Fatalf("login status = %d (%s)", resp.Code, resp.Body.String())
		}
		var lr LoginResponse
		decode(t, resp, &lr)
		ts.token = lr.Token
		if resp := ts.do(t, http.MethodGet, "/tasks", nil); resp.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.Code)
		}
	})
}

func TestPasswordTooLong(t *testing.T) {
	ts := newTestServer(t)
	long := strings.Repeat("a", 73)

	resp := ts.do(t, http.MethodPost, "/register", AuthRequest{Email: "ada@example.com", Password: long})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("register status = %d, want 400", resp.Code)
	}

	reset, err := ts.tokens.GenerateResetToken("u1")
	if err != nil {
		t.Fatal(err)
	}
	resp = ts.do(t, http.MethodPost, "/password/confirm", ResetConfirmRequest{Token: reset, Password: long})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("confirm status = %d, want 400", resp.Code)
	}
	if !ts.users.byID["u1"].PasswordChangedAt.IsZero() {
		t.Error("password changed despite the rejected request")
	}
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)
	ts.users.byID["u1"] = models.User{ID: "u1", Email: "ada@example.com"}
	resp := ts.do(t, http.MethodGet, "/me", nil)
	var u models.User
	decode(t, resp, &u)
	if u.Email != "ada@example.com" {
		t.Errorf("user = %+v", u)
	}

	delete(ts.users.byID, "u1")
	resp = ts.do(t, http.MethodGet, "/me", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status for a removed user = %d, want 401", resp.Code)
	}
}
