package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/molsearch/molsearch/application/tasks"
	"github.com/molsearch/molsearch/pkg/common"
)

// TaskHandler handles async search task polling
type TaskHandler struct {
	tasks *tasks.Service
}

// NewTaskHandler creates a task handler
func NewTaskHandler(taskService *tasks.Service) *TaskHandler {
	return &TaskHandler{tasks: taskService}
}

// GetTask handles GET /tasks/{taskID}. The result field appears only
// once the task has reached SUCCESS.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	common.RespondJSON(w, http.StatusOK, h.tasks.Poll(taskID))
}
