package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/erntsn/todo-app/utils"
	"github.com/google/uuid"
)

type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
	RecurYearly  RecurrenceType = "yearly"
)

// Recurrence repeats a task every Value units of Type.
type Recurrence struct {
	Type  RecurrenceType `bson:"type" json:"type"`
	Value int            `bson:"value" json:"value"`
}

func (r Recurrence) Validate() error {
	switch r.Type {
	case RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
	default:
		return fmt.Errorf("unknown recurrence type %q", r.Type)
	}
	if r.Value < 1 {
		return errors.New("recurrence value must be at least 1")
	}
	return nil
}

// NextOccurrence returns the due date following date.
func (r Recurrence) NextOccurrence(date string) string {
	return utils.NextOccurrence(date, string(r.Type), r.Value)
}

// NextInstance builds the follow-up task created when a recurring task is
// completed. It returns nil for non-recurring tasks and for tasks without a
// due date.
func (t *Task) NextInstance(now time.Time) *Task {
	if t.Recurring == nil || t.Date == "" {
		return nil
	}
	next := t.Recurring.NextOccurrence(t.Date)
	if next == "" || next == t.Date {
		return nil
	}

	rec := *t.Recurring
	n := &Task{
		ID:        uuid.New().String(),
		UserID:    t.UserID,
		Text:      t.Text,
		Status:    StatusTodo,
		Date:      next,
		Priority:  t.Priority,
		Category:  t.Category,
		Tags:      append([]string(nil), t.Tags...),
		Notes:     t.Notes,
		Recurring: &rec,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, st := range t.Subtasks {
		n.Subtasks = append(n.Subtasks, Subtask{ID: uuid.New().String(), Text: st.Text})
	}
	return n
}
