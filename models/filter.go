package models

import "strings"

// Filter narrows a task list the way the list view does.
type Filter struct {
	// Status is "all", "active" or "completed".
	Status   string `json:"status"`
	Category string `json:"category"`
	Tag      string `json:"tag"`
	Search   string `json:"search"`
}

func (f Filter) Match(t *Task) bool {
	switch f.Status {
	case "active":
		if t.Completed {
			return false
		}
	case "completed":
		if !t.Completed {
			return false
		}
	}

	if f.Category != "" && f.Category != "all" && string(t.Category) != f.Category {
		return false
	}

	if f.Tag != "" {
		found := false
		for _, tag := range t.Tags {
			if tag == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Text), q) &&
			!strings.Contains(strings.ToLower(t.Notes), q) {
			return false
		}
	}
	return true
}

func FilterTasks(tasks []Task, f Filter) []Task {
	out := make([]Task, 0, len(tasks))
	for i := range tasks {
		if f.Match(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

// DistinctTags returns every tag used across tasks, in first-seen order.
func DistinctTags(tasks []Task) []string {
	var all []string
	for _, t := range tasks {
		all = append(all, t.Tags...)
	}
	return NormalizeTags(all)
}
