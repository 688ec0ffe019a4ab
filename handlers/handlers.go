package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/erntsn/todo-app/models"
	"github.com/erntsn/todo-app/store"
	"github.com/erntsn/todo-app/utils"
)

// TaskRepository is the task persistence used by the handlers.
type TaskRepository interface {
	List(ctx context.Context, userID string) ([]models.Task, error)
	Get(ctx context.Context, userID, id string) (*models.Task, error)
	Insert(ctx context.Context, task *models.Task) error
	Replace(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, userID, id string) error
	Tags(ctx context.Context, userID string) ([]string, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
}

// Handler serves the task, view and statistics endpoints.
type Handler struct {
	Tasks TaskRepository
	Now   func() time.Time
}

func NewHandler(tasks TaskRepository) *Handler {
	return &Handler{Tasks: tasks, Now: time.Now}
}

// respondStoreError maps store and validation errors onto status codes.
func respondStoreError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.ResponseWithError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, store.ErrDuplicate):
		utils.ResponseWithError(w, http.StatusConflict, "task already exists")
	case errors.Is(err, models.ErrInvalidTask), errors.Is(err, models.ErrInvalidStatus):
		utils.ResponseWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNoSubtask):
		utils.ResponseWithError(w, http.StatusNotFound, "Subtask not found")
	default:
		log.Printf("%s: %v", action, err)
		utils.ResponseWithError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
