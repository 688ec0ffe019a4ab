package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/stats"
	"github.com/erntsn/todo-app/views"
)

var timeNow = time.Now

// shortID is the prefix shown in listings; any unique prefix resolves.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// theme highlights overdue dates and high priorities. The dark theme uses
// ANSI colors, the light one plain text.
type theme struct {
	alert func(string) string
	muted func(string) string
}

func newTheme(dark bool) theme {
	if !dark {
		plain := func(s string) string { return s }
		return theme{alert: plain, muted: plain}
	}
	return theme{
		alert: func(s string) string { return "\x1b[91m" + s + "\x1b[0m" },
		muted: func(s string) string { return "\x1b[90m" + s + "\x1b[0m" },
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func recurrenceLabel(m *messages, r *models.Recurrence) string {
	if r == nil {
		return ""
	}
	if r.Value > 1 {
		return fmt.Sprintf("%s %d %s", m.every, r.Value, label(m.recurrences, string(r.Type)))
	}
	return label(m.recurrences, string(r.Type))
}

func tagList(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = "#" + t
	}
	return strings.Join(out, " ")
}

func renderList(w io.Writer, m *messages, th theme, tasks []models.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, m.noTodo)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range tasks {
		date := t.Date
		if t.IsOverdue(now) {
			date = th.alert(date + " !")
		}
		prio := label(m.priorities, string(t.Priority))
		if t.Priority == models.PriorityHigh {
			prio = th.alert(prio)
		}
		extra := tagList(t.Tags)
		if done, total := t.SubtaskProgress(); total > 0 {
			extra = strings.TrimSpace(fmt.Sprintf("%d/%d %s", done, total, extra))
		}
		if r := recurrenceLabel(m, t.Recurring); r != "" {
			extra = strings.TrimSpace(extra + " (" + r + ")")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), checkbox(t.Completed), t.Text, date, prio,
			label(m.categories, string(t.Category)), th.muted(extra))
	}
	tw.Flush()
}

func renderTask(w io.Writer, m *messages, th theme, t *models.Task, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", t.ID)
	fmt.Fprintf(tw, "text\t%s %s\n", checkbox(t.Completed), t.Text)
	fmt.Fprintf(tw, "status\t%s\n", label(m.columns, string(t.EffectiveStatus())))
	if t.Date != "" {
		date := t.Date
		if t.IsOverdue(now) {
			date = th.alert(date + " (" + m.overdue + ")")
		}
		fmt.Fprintf(tw, "date\t%s\n", date)
	}
	fmt.Fprintf(tw, "priority\t%s\n", label(m.priorities, string(t.Priority)))
	fmt.Fprintf(tw, "category\t%s\n", label(m.categories, string(t.Category)))
	if len(t.Tags) > 0 {
		fmt.Fprintf(tw, "tags\t%s\n", tagList(t.Tags))
	}
	if r := recurrenceLabel(m, t.Recurring); r != "" {
		fmt.Fprintf(tw, "repeats\t%s\n", r)
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(tw, "completed\t%s\n", t.CompletedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
	if t.Notes != "" {
		fmt.Fprintf(w, "\n%s\n", t.Notes)
	}
	if len(t.Subtasks) > 0 {
		fmt.Fprintln(w)
		renderSubtasks(w, t)
	}
}

func renderSubtasks(w io.Writer, t *models.Task) {
	done, total := t.SubtaskProgress()
	fmt.Fprintf(w, "%s (%d/%d)\n", t.Text, done, total)
	for i, st := range t.Subtasks {
		fmt.Fprintf(w, "  %d. %s %s\n", i+1, checkbox(st.Completed), st.Text)
	}
}

func renderBoard(w io.Writer, m *messages, cols []views.Column) {
	for i, col := range cols {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s (%d)\n", label(m.columns, string(col.Status)), len(col.Tasks))
		for _, t := range col.Tasks {
			line := fmt.Sprintf("  %s  %s", shortID(t.ID), t.Text)
			if t.Date != "" {
				line += "  " + t.Date
			}
			fmt.Fprintln(w, line)
		}
	}
}

// renderCalendar prints a Sunday-first month grid followed by the tasks
// of each day.
func renderCalendar(w io.Writer, m *messages, th theme, month views.Month, now time.Time) {
	fmt.Fprintf(w, "%s %d\n", month.Month, month.Year)
	fmt.Fprintln(w, strings.Join(m.weekdays[:], " "))

	today := now.Format("2006-01-02")
	var row []string
	flush := func() {
		fmt.Fprintln(w, strings.TrimRight(strings.Join(row, " "), " "))
		row = row[:0]
	}
	for _, c := range month.Cells {
		cell := "   "
		if !c.Empty {
			mark := " "
			if len(c.Tasks) > 0 {
				mark = "*"
			}
			cell = fmt.Sprintf("%2d%s", c.Day, mark)
			if c.Date == today {
				cell = th.alert(cell)
			}
		}
		row = append(row, cell)
		if len(row) == 7 {
			flush()
		}
	}
	if len(row) > 0 {
		flush()
	}

	for _, c := range month.Cells {
		if len(c.Tasks) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", c.Date)
		for _, t := range c.Tasks {
			fmt.Fprintf(w, "  %s %s %s\n", shortID(t.ID), checkbox(t.Completed), t.Text)
		}
	}
}

func renderStats(w io.Writer, m *messages, s stats.Summary) {
	fmt.Fprintln(w, m.statistics)
	fmt.Fprintf(w, "%s: %d  %s: %d  %s: %d\n",
		m.all, s.Totals.Total, m.completed, s.Totals.Completed, m.active, s.Totals.Pending)
	fmt.Fprintf(w, "%s: %d (%d%%)\n", m.overdue, s.Overdue.Count, s.Overdue.Percentage)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw)
	for _, p := range s.Priority {
		fmt.Fprintf(tw, "%s\t%s\n", label(m.priorities, string(p.Priority)), bar(p.Count))
	}
	fmt.Fprintln(tw)
	cats := append([]stats.CategoryCount(nil), s.Category...)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Count > cats[j].Count })
	for _, c := range cats {
		if c.Count == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", label(m.categories, string(c.Category)), bar(c.Count))
	}
	tw.Flush()

	total := 0
	for _, d := range s.CompletionByDay {
		total += d.Count
	}
	fmt.Fprintf(w, "\n%s: %d\n", m.completionBy, total)
	var spark strings.Builder
	for _, d := range s.CompletionByDay {
		spark.WriteString(sparkRune(d.Count))
	}
	fmt.Fprintln(w, spark.String())
}

func bar(n int) string {
	return fmt.Sprintf("%s %d", strings.Repeat("#", n), n)
}

var sparks = []string{"_", ".", ":", "|"}

func sparkRune(n int) string {
	if n >= len(sparks) {
		return sparks[len(sparks)-1]
	}
	return sparks[n]
}
