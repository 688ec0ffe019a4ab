package views

import (
	"fmt"
	"time"

	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/utils"
)

// Cell is one slot of the month grid. Leading cells before the 1st are
// empty and have Day 0.
type Cell struct {
	Day   int           `json:"day,omitempty"`
	Date  string        `json:"date,omitempty"`
	Empty bool          `json:"empty"`
	Tasks []models.Task `json:"tasks,omitempty"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Cells []Cell     `json:"cells"`
}

// Calendar lays out a Sunday-first month grid with each day's tasks.
func Calendar(tasks []models.Task, year int, month time.Month) (Month, error) {
	if month < time.January || month > time.December {
		return Month{}, fmt.Errorf("invalid month %d", month)
	}

	byDate := make(map[string][]models.Task)
	for _, t := range tasks {
		if t.Date != "" {
			byDate[t.Date] = append(byDate[t.Date], t)
		}
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	m := Month{Year: year, Month: month}
	for i := 0; i < int(first.Weekday()); i++ {
		m.Cells = append(m.Cells, Cell{Empty: true})
	}
	for day := 1; day <= utils.DaysInMonth(year, month); day++ {
		date := utils.FormatDate(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
		m.Cells = append(m.Cells, Cell{Day: day, Date: date, Tasks: byDate[date]})
	}
	return m, nil
}

// Previous returns the year and month before m.
func (m Month) Previous() (int, time.Month) {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return t.Year(), t.Month()
}

func (m Month) Next() (int, time.Month) {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return t.Year(), t.Month()
}
