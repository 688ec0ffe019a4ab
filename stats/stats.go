// Package stats summarises a user's tasks for the statistics panel.
package stats

import (
	"math"
	"time"

	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/utils"
)

// CompletionWindow is the number of days covered by CompletionByDay.
const CompletionWindow = 30

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type PriorityCount struct {
	Priority models.Priority `json:"priority"`
	Count    int             `json:"count"`
}

type CategoryCount struct {
	Category models.Category `json:"category"`
	Count    int             `json:"count"`
}

type Overdue struct {
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

type Totals struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type Summary struct {
	CompletionByDay []DayCount      `json:"completionByDay"`
	Priority        []PriorityCount `json:"priority"`
	Category        []CategoryCount `json:"category"`
	Overdue         Overdue         `json:"overdue"`
	Totals          Totals          `json:"totals"`
}

func Compute(tasks []models.Task, now time.Time) Summary {
	return Summary{
		CompletionByDay: CompletionByDay(tasks, now),
		Priority:        PriorityDistribution(tasks),
		Category:        CategoryDistribution(tasks),
		Overdue:         OverdueStats(tasks, now),
		Totals:          TotalsOf(tasks),
	}
}

// CompletionByDay counts completions per UTC day over the last
// CompletionWindow days, oldest first.
func CompletionByDay(tasks []models.Task, now time.Time) []DayCount {
	today := utils.DayOf(now.UTC())
	index := make(map[string]int, CompletionWindow)
	days := make([]DayCount, CompletionWindow)
	for i := 0; i < CompletionWindow; i++ {
		date := utils.FormatDate(today.AddDate(0, 0, i-(CompletionWindow-1)))
		days[i] = DayCount{Date: date}
		index[date] = i
	}

	for _, t := range tasks {
		if t.CompletedAt == nil {
			continue
		}
		if i, ok := index[utils.FormatDate(t.CompletedAt.UTC())]; ok {
			days[i].Count++
		}
	}
	return days
}

// PriorityDistribution counts tasks per priority; a missing or unknown
// priority counts as medium.
func PriorityDistribution(tasks []models.Task) []PriorityCount {
	counts := map[models.Priority]int{}
	for _, t := range tasks {
		p := t.Priority
		if !p.Valid() {
			p = models.PriorityMedium
		}
		counts[p]++
	}
	out := make([]PriorityCount, 0, len(models.Priorities))
	for _, p := range models.Priorities {
		out = append(out, PriorityCount{Priority: p, Count: counts[p]})
	}
	return out
}

// CategoryDistribution lists only the categories in use, in canonical
// order, with a missing category counted as other.
func CategoryDistribution(tasks []models.Task) []CategoryCount {
	counts := map[models.Category]int{}
	var extra []models.Category
	for _, t := range tasks {
		c := t.Category
		if c == "" {
			c = models.CategoryOther
		}
		if !c.Valid() && counts[c] == 0 {
			extra = append(extra, c)
		}
		counts[c]++
	}

	out := []CategoryCount{}
	for _, c := range append(append([]models.Category{}, models.Categories...), extra...) {
		if n := counts[c]; n > 0 {
			out = append(out, CategoryCount{Category: c, Count: n})
		}
	}
	return out
}

func OverdueStats(tasks []models.Task, now time.Time) Overdue {
	var overdue, incomplete int
	for i := range tasks {
		if tasks[i].Completed {
			continue
		}
		incomplete++
		if tasks[i].IsOverdue(now) {
			overdue++
		}
	}
	res := Overdue{Count: overdue}
	if incomplete > 0 {
		res.Percentage = int(math.Round(float64(overdue) / float64(incomplete) * 100))
	}
	return res
}

func TotalsOf(tasks []models.Task) Totals {
	var tot Totals
	for _, t := range tasks {
		tot.Total++
		if t.Completed {
			tot.Completed++
		}
	}
	tot.Pending = tot.Total - tot.Completed
	return tot
}
