package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/erntsn/todo-app/middleware"
	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/store"
	"github.com/erntsn/todo-app/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ListTasks handles GET /tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	tasks, err := h.Tasks.List(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err, "fetch tasks")
		return
	}

	q := r.URL.Query()
	filter := models.Filter{
		Status:   q.Get("filter"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Search:   q.Get("q"),
	}
	utils.ResponseWithJson(w, http.StatusOK, models.FilterTasks(tasks, filter))
}

// CreateTask handles POST /tasks. A client-supplied id is kept so that
// tasks created offline keep their identity once replayed.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	now := h.Now()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.UserID = middleware.UserID(r.Context())
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Normalize()
	if err := task.Validate(); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The status decides; completed, inProgress and completedAt follow it.
	if err := task.ApplyStatus(task.EffectiveStatus(), now); err != nil {
		respondStoreError(w, err, "create task")
		return
	}

	if err := h.Tasks.Insert(r.Context(), &task); err != nil {
		respondStoreError(w, err, "create task")
		return
	}
	utils.ResponseWithJson(w, http.StatusCreated, task)
}

// GetTask handles GET /tasks/{taskID}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tasks.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["taskID"])
	if err != nil {
		respondStoreError(w, err, "fetch task")
		return
	}
	utils.ResponseWithJson(w, http.StatusOK, task)
}

// UpdateTask handles PUT /tasks/{taskID}: the editable fields are replaced
// and a changed status or completed flag is applied as a status change.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var body models.Task
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	task, err := h.Tasks.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["taskID"])
	if err != nil {
		respondStoreError(w, err, "fetch task")
		return
	}

	now := h.Now()
	task.ReplaceEditable(body)

	target := models.Status("")
	switch {
	case body.Status != "" && body.Status != task.Status:
		target = body.Status
	case body.Status == "" && body.Completed != task.Completed:
		target = task.ToggleTarget()
	}

	var next *models.Task
	if target != "" {
		if next, err = task.ChangeStatus(target, "", now); err != nil {
			respondStoreError(w, err, "update task")
			return
		}
	}
	h.saveChange(w, r, task, next, now)
}

// PatchTask handles PATCH /tasks/{taskID}.
func (h *Handler) PatchTask(w http.ResponseWriter, r *http.Request) {
	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if patch.Empty() {
		utils.ResponseWithError(w, http.StatusBadRequest, "no update request provided")
		return
	}

	task, err := h.Tasks.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["taskID"])
	if err != nil {
		respondStoreError(w, err, "fetch task")
		return
	}
	task.ApplyPatch(patch)
	h.saveChange(w, r, task, nil, h.Now())
}

// ToggleTask handles POST /tasks/{taskID}/toggle.
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
			return
		}
	}

	task, err := h.Tasks.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["taskID"])
	if err != nil {
		respondStoreError(w, err, "fetch task")
		return
	}

	now := h.Now()
	next, err := task.Toggle(req.NextID, now)
	if err != nil {
		respondStoreError(w, err, "toggle task")
		return
	}
	h.saveChange(w, r, task, next, now)
}

// UpdateStatus handles PUT /tasks/{taskID}/status. Setting the status a
// task already has is a no-op, which makes retries safe.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	task, err := h.Tasks.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["taskID"])
	if err != nil {
		respondStoreError(w, err, "fetch task")
		return
	}

	now := h.Now()
	next, err := task.ChangeStatus(status, req.NextID, now)
	if err != nil {
		respondStoreError(w, err, "update status")
		return
	}
	h.saveChange(w, r, task, next, now)
}

// DeleteTask handles DELETE /tasks/{taskID}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["taskID"]); err != nil {
		respondStoreError(w, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSubtask handles POST /tasks/{taskID}/subtasks.
func (h *Handler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	var req models.SubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	h.editSubtasks(w, r, func(t *models.Task) error {
		_, err := t.AddSubtask(req.ID, req.Text)
		return err
	})
}

// ToggleSubtask handles POST /tasks/{taskID}/subtasks/{subtaskID}/toggle.
func (h *Handler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["subtaskID"]
	h.editSubtasks(w, r, func(t *models.Task) error { return t.ToggleSubtask(id) })
}

// RemoveSubtask handles DELETE /tasks/{taskID}/subtasks/{subtaskID}.
func (h *Handler) RemoveSubtask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["subtaskID"]
	h.editSubtasks(w, r, func(t *models.Task) error { return t.RemoveSubtask(id) })
}

func (h *Handler) editSubtasks(w http.ResponseWriter, r *http.Request, edit func(*models.Task) error) {
	task, err := h.Tasks.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["taskID"])
	if err != nil {
		respondStoreError(w, err, "fetch task")
		return
	}
	if err := edit(task); err != nil {
		respondStoreError(w, err, "update subtasks")
		return
	}
	h.saveChange(w, r, task, nil, h.Now())
}

// ListTags handles GET /tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Tasks.Tags(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondStoreError(w, err, "fetch tags")
		return
	}
	utils.ResponseWithJson(w, http.StatusOK, tags)
}

// saveChange validates and stores task, inserts a spawned occurrence, and
// answers with the resulting TaskChange.
func (h *Handler) saveChange(w http.ResponseWriter, r *http.Request, task *models.Task, next *models.Task, now time.Time) {
	task.Normalize()
	if err := task.Validate(); err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	task.UpdatedAt = now

	if err := h.Tasks.Replace(r.Context(), task); err != nil {
		respondStoreError(w, err, "update task")
		return
	}

	change := models.TaskChange{Task: *task}
	if next != nil {
		err := h.Tasks.Insert(r.Context(), next)
		switch {
		case err == nil:
			change.Next = next
		case errors.Is(err, store.ErrDuplicate):
			// The occurrence was created by an earlier attempt.
		default:
			log.Printf("spawn next occurrence of %s: %v", task.ID, err)
		}
	}
	utils.ResponseWithJson(w, http.StatusOK, change)
}
