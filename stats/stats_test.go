package stats

import (
	"testing"
	"time"

	"github.com/erntsn/todo-app/models"
)

func completedAt(t time.Time) *time.Time { return &t }

func TestCompletionByDay(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{Completed: true, CompletedAt: completedAt(now.Add(-time.Hour))},
		{Completed: true, CompletedAt: completedAt(now.Add(-2 * time.Hour))},
		{Completed: true, CompletedAt: completedAt(now.AddDate(0, 0, -29))},
		{Completed: true, CompletedAt: completedAt(now.AddDate(0, 0, -30))},
		{Completed: false},
	}

	days := CompletionByDay(tasks, now)
	if len(days) != CompletionWindow {
		t.Fatalf("Expected %d days, got %d", CompletionWindow, len(days))
	}
	if days[0].Date != "2026-02-14" {
		t.Errorf("Expected window to start 2026-02-14, got %s", days[0].Date)
	}
	if last := days[len(days)-1]; last.Date != "2026-03-15" || last.Count != 2 {
		t.Errorf("Expected 2 completions today, got %+v", last)
	}
	if days[0].Count != 1 {
		t.Errorf("Expected 1 completion on first day, got %d", days[0].Count)
	}

	total := 0
	for _, d := range days {
		total += d.Count
	}
	if total != 3 {
		t.Errorf("Expected 3 completions inside the window, got %d", total)
	}
}

func TestPriorityDistribution(t *testing.T) {
	tasks := []models.Task{
		{Priority: models.PriorityHigh},
		{Priority: models.PriorityLow},
		{Priority: ""},
		{Priority: "urgent"},
	}

	got := PriorityDistribution(tasks)
	want := map[models.Priority]int{models.PriorityHigh: 1, models.PriorityMedium: 2, models.PriorityLow: 1}
	if len(got) != 3 {
		t.Fatalf("Expected 3 buckets, got %d", len(got))
	}
	for _, pc := range got {
		if pc.Count != want[pc.Priority] {
			t.Errorf("Priority %s: expected %d, got %d", pc.Priority, want[pc.Priority], pc.Count)
		}
	}
}

func TestCategoryDistribution(t *testing.T) {
	tasks := []models.Task{
		{Category: models.CategoryWork},
		{Category: models.CategoryWork},
		{Category: ""},
		{Category: models.CategoryHealth},
	}

	got := CategoryDistribution(tasks)
	if len(got) != 3 {
		t.Fatalf("Expected 3 categories in use, got %+v", got)
	}
	if got[0].Category != models.CategoryWork || got[0].Count != 2 {
		t.Errorf("Expected work=2 first, got %+v", got[0])
	}
	if got[2].Category != models.CategoryOther || got[2].Count != 1 {
		t.Errorf("Expected other=1 last, got %+v", got[2])
	}
}

func TestOverdueStats(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		tasks []models.Task
		want  Overdue
	}{
		{
			name: "Given no incomplete tasks When computing Then percentage is zero",
			tasks: []models.Task{
				{Completed: true, Date: "2026-01-01"},
			},
			want: Overdue{},
		},
		{
			name: "Given one of three incomplete overdue When computing Then rounds to 33",
			tasks: []models.Task{
				{Date: "2026-03-14"},
				{Date: "2026-03-15"},
				{},
				{Completed: true, Date: "2026-03-01"},
			},
			want: Overdue{Count: 1, Percentage: 33},
		},
		{
			name: "Given two of three incomplete overdue When computing Then rounds to 67",
			tasks: []models.Task{
				{Date: "2026-03-10"},
				{Date: "2026-02-01"},
				{Date: "2026-04-01"},
			},
			want: Overdue{Count: 2, Percentage: 67},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverdueStats(tt.tasks, now); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	now := time.Now()
	s := Compute([]models.Task{
		{Text: "a", Completed: true, CompletedAt: completedAt(now)},
		{Text: "b"},
	}, now)

	if s.Totals != (Totals{Total: 2, Completed: 1, Pending: 1}) {
		t.Errorf("Unexpected totals: %+v", s.Totals)
	}
	if len(s.CompletionByDay) != CompletionWindow {
		t.Errorf("Expected %d days, got %d", CompletionWindow, len(s.CompletionByDay))
	}
}
