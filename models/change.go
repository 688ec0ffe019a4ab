package models

// TaskChange is returned by completion changes. Next is the follow-up
// occurrence spawned when a recurring task is completed.
type TaskChange struct {
	Task Task  `json:"task"`
	Next *Task `json:"next,omitempty"`
}

// StatusRequest moves a task to another column. NextID, when set, is the id
// given to a spawned recurring occurrence so that retried requests do not
// create duplicates.
type StatusRequest struct {
	Status string `json:"status"`
	NextID string `json:"nextId,omitempty"`
}

type SubtaskRequest struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}
