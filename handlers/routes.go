package handlers

import (
	"net/http"

	"github.com/erntsn/todo-app/middleware"
	"github.com/gorilla/mux"
)

// NewRouter sets up all routes for the application.
func NewRouter(h *Handler, auth *AuthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Logging)

	router.HandleFunc("/check", Check).Methods(http.MethodGet)
	router.HandleFunc("/register", auth.Register).Methods(http.MethodPost)
	router.HandleFunc("/login", auth.Login).Methods(http.MethodPost)
	router.HandleFunc("/password/reset", auth.RequestPasswordReset).Methods(http.MethodPost)
	router.HandleFunc("/password/confirm", auth.ConfirmPasswordReset).Methods(http.MethodPost)

	api := router.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware(auth))
	api.HandleFunc("/me", auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", h.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}", h.GetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", h.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID}", h.PatchTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskID}", h.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/toggle", h.ToggleTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/status", h.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID}/subtasks", h.AddSubtask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/subtasks/{subtaskID}/toggle", h.ToggleSubtask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/subtasks/{subtaskID}", h.RemoveSubtask).Methods(http.MethodDelete)
	api.HandleFunc("/tags", h.ListTags).Methods(http.MethodGet)
	api.HandleFunc("/board", h.Board).Methods(http.MethodGet)
	api.HandleFunc("/calendar", h.Calendar).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)

	return router
}

func Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
