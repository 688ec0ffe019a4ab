package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/erntsn/todo-app/middleware"
	"github.com/erntsn/todo-app/stats"
	"github.com/erntsn/todo-app/utils"
	"github.com/erntsn/todo-app/views"
)

// Board handles GET /board.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondStoreError(w, err, "fetch tasks")
		return
	}
	utils.ResponseWithJson(w, http.StatusOK, views.Board(tasks))
}

// Calendar handles GET /calendar?year=&month=, defaulting to the current
// month.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	year, month := now.Year(), now.Month()

	q := r.URL.Query()
	if s := q.Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 {
			utils.ResponseWithError(w, http.StatusBadRequest, "Invalid year value")
			return
		}
		year = y
	}
	if s := q.Get("month"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			utils.ResponseWithError(w, http.StatusBadRequest, "Invalid month value")
			return
		}
		month = time.Month(m)
	}

	tasks, err := h.Tasks.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondStoreError(w, err, "fetch tasks")
		return
	}
	cal, err := views.Calendar(tasks, year, month)
	if err != nil {
		utils.ResponseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.ResponseWithJson(w, http.StatusOK, cal)
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondStoreError(w, err, "fetch tasks")
		return
	}
	utils.ResponseWithJson(w, http.StatusOK, stats.Compute(tasks, h.Now()))
}
