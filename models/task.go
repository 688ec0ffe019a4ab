package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erntsn/todo-app/utils"
	"github.com/google/uuid"
)

var (
	ErrInvalidTask   = errors.New("invalid task")
	ErrInvalidStatus = errors.New("invalid status")
	ErrNoSubtask     = errors.New("subtask not found")
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the priorities in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type Category string

const (
	CategoryWork      Category = "work"
	CategoryPersonal  Category = "personal"
	CategoryHealth    Category = "health"
	CategoryShopping  Category = "shopping"
	CategoryFinance   Category = "finance"
	CategoryEducation Category = "education"
	CategoryOther     Category = "other"
)

var Categories = []Category{
	CategoryWork, CategoryPersonal, CategoryHealth, CategoryShopping,
	CategoryFinance, CategoryEducation, CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the board column a task sits in.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inProgress"
	StatusDone       Status = "done"
)

var Statuses = []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts the board column names plus the "completed" and
// "active" aliases used by the list view.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "completed":
		return StatusDone, nil
	case "active":
		return StatusTodo, nil
	}
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

type Subtask struct {
	ID        string `bson:"id" json:"id"`
	Text      string `bson:"text" json:"text"`
	Completed bool   `bson:"completed" json:"completed"`
}

type Task struct {
	ID          string      `bson:"_id" json:"id"`
	UserID      string      `bson:"userId" json:"userId"`
	Text        string      `bson:"text" json:"text"`
	Completed   bool        `bson:"completed" json:"completed"`
	InProgress  bool        `bson:"inProgress" json:"inProgress"`
	Status      Status      `bson:"status,omitempty" json:"status,omitempty"`
	Date        string      `bson:"date,omitempty" json:"date,omitempty"`
	Priority    Priority    `bson:"priority" json:"priority"`
	Category    Category    `bson:"category" json:"category"`
	Tags        []string    `bson:"tags" json:"tags"`
	Notes       string      `bson:"notes,omitempty" json:"notes,omitempty"`
	Subtasks    []Subtask   `bson:"subtasks,omitempty" json:"subtasks,omitempty"`
	Recurring   *Recurrence `bson:"recurring,omitempty" json:"recurring,omitempty"`
	CreatedAt   time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time   `bson:"updatedAt" json:"updatedAt"`
	CompletedAt *time.Time  `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Normalize fills defaults and canonicalizes tags and the due date.
func (t *Task) Normalize() {
	t.Text = strings.TrimSpace(t.Text)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Category == "" {
		t.Category = CategoryOther
	}
	if t.Status == "" {
		if t.Completed {
			t.Status = StatusDone
		} else if t.InProgress {
			t.Status = StatusInProgress
		} else {
			t.Status = StatusTodo
		}
	}
	t.Tags = NormalizeTags(t.Tags)
	if t.Date != "" {
		if d, err := utils.ParseDate(t.Date); err == nil {
			t.Date = utils.FormatDate(d)
		}
	}
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidTask)
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
	}
	if t.Category != "" && !t.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTask, t.Category)
	}
	if t.Status != "" && !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, t.Status)
	}
	if t.Date != "" {
		if _, err := utils.ParseDate(t.Date); err != nil {
			return fmt.Errorf("%w: bad date %q", ErrInvalidTask, t.Date)
		}
	}
	if t.Recurring != nil {
		if err := t.Recurring.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTask, err)
		}
	}
	for _, st := range t.Subtasks {
		if strings.TrimSpace(st.Text) == "" {
			return fmt.Errorf("%w: subtask text is required", ErrInvalidTask)
		}
	}
	return nil
}

// NormalizeTags lowercases and trims tags, dropping blanks and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// EffectiveStatus is the column the task is shown in. Tasks stored before
// statuses existed fall back to their completed flag.
func (t *Task) EffectiveStatus() Status {
	if t.Status.Valid() {
		return t.Status
	}
	if t.Completed {
		return StatusDone
	}
	return StatusTodo
}

func (t *Task) ApplyStatus(status Status, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	t.Status = status
	switch status {
	case StatusDone:
		t.markCompleted(now)
	case StatusInProgress:
		t.Completed = false
		t.InProgress = true
		t.CompletedAt = nil
	default:
		t.Completed = false
		t.InProgress = false
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
	return nil
}

// ToggleTarget is the status a completion toggle moves the task to.
func (t *Task) ToggleTarget() Status {
	if t.Completed {
		return StatusTodo
	}
	return StatusDone
}

// ChangeStatus applies status and, when a recurring task becomes completed,
// returns its next occurrence. A non-empty nextID is used as that
// occurrence's id.
func (t *Task) ChangeStatus(status Status, nextID string, now time.Time) (*Task, error) {
	wasCompleted := t.Completed
	if err := t.ApplyStatus(status, now); err != nil {
		return nil, err
	}
	if wasCompleted || !t.Completed {
		return nil, nil
	}
	next := t.NextInstance(now)
	if next != nil && nextID != "" {
		next.ID = nextID
	}
	return next, nil
}

// Clone returns a copy that shares no slices or pointers with t.
func (t *Task) Clone() *Task {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	if t.Recurring != nil {
		r := *t.Recurring
		c.Recurring = &r
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// Toggle flips completion. See ChangeStatus for the returned occurrence.
func (t *Task) Toggle(nextID string, now time.Time) (*Task, error) {
	return t.ChangeStatus(t.ToggleTarget(), nextID, now)
}

func (t *Task) markCompleted(now time.Time) {
	t.Completed = true
	t.InProgress = false
	if t.CompletedAt == nil {
		at := now
		t.CompletedAt = &at
	}
}

// AddSubtask appends a subtask. An empty id gets a generated one.
func (t *Task) AddSubtask(id, text string) (*Subtask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: subtask text is required", ErrInvalidTask)
	}
	if id == "" {
		id = uuid.New().String()
	}
	for _, st := range t.Subtasks {
		if st.ID == id {
			return nil, fmt.Errorf("%w: duplicate subtask id %q", ErrInvalidTask, id)
		}
	}
	t.Subtasks = append(t.Subtasks, Subtask{ID: id, Text: text})
	return &t.Subtasks[len(t.Subtasks)-1], nil
}

func (t *Task) ToggleSubtask(id string) error {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			t.Subtasks[i].Completed = !t.Subtasks[i].Completed
			return nil
		}
	}
	return ErrNoSubtask
}

func (t *Task) RemoveSubtask(id string) error {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
			return nil
		}
	}
	return ErrNoSubtask
}

// SubtaskProgress returns the number of completed subtasks and the total.
func (t *Task) SubtaskProgress() (done, total int) {
	for _, st := range t.Subtasks {
		if st.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// IsOverdue reports an incomplete task whose due date is before today.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && utils.IsOverdue(t.Date, now)
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Text      *string     `json:"text,omitempty"`
	Date      *string     `json:"date,omitempty"`
	Priority  *Priority   `json:"priority,omitempty"`
	Category  *Category   `json:"category,omitempty"`
	Tags      *[]string   `json:"tags,omitempty"`
	Notes     *string     `json:"notes,omitempty"`
	Subtasks  *[]Subtask  `json:"subtasks,omitempty"`
	Recurring *Recurrence `json:"recurring,omitempty"`
	// ClearRecurring removes the recurrence descriptor.
	ClearRecurring bool `json:"clearRecurring,omitempty"`
}

func (p TaskPatch) Empty() bool {
	return p.Text == nil && p.Date == nil && p.Priority == nil && p.Category == nil &&
		p.Tags == nil && p.Notes == nil && p.Subtasks == nil && p.Recurring == nil &&
		!p.ClearRecurring
}

func (t *Task) ApplyPatch(p TaskPatch) {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Subtasks != nil {
		t.Subtasks = *p.Subtasks
	}
	if p.Recurring != nil {
		r := *p.Recurring
		t.Recurring = &r
	}
	if p.ClearRecurring {
		t.Recurring = nil
	}
}

// ReplaceEditable copies the user-editable fields of src onto t, leaving
// identity, ownership, completion state and timestamps alone.
func (t *Task) ReplaceEditable(src Task) {
	t.Text = src.Text
	t.Date = src.Date
	t.Priority = src.Priority
	t.Category = src.Category
	t.Tags = src.Tags
	t.Notes = src.Notes
	t.Subtasks = src.Subtasks
	t.Recurring = src.Recurring
}
