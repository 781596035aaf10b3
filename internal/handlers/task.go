package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/assigna-app/apiserver/internal/services"
	"github.com/assigna-app/apiserver/internal/store"
	"github.com/assigna-app/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// TaskHandler provides the role-scoped task endpoints. Listings go
// through the visibility filter, so the same handlers back both the
// lead and member routers.
type TaskHandler struct {
	tasks *services.TaskService
	users *services.UserService
}

func NewTaskHandler(tasks *services.TaskService, users *services.UserService) *TaskHandler {
	return &TaskHandler{tasks: tasks, users: users}
}

// LeadRouter registers the team-lead task routes.
func LeadRouter(r chi.Router, h *TaskHandler) {
	registerListings(r, h)
	r.Post("/add-task", h.AddTask)
	r.Post("/edit-task", h.EditTask)
	r.Post("/delete-task", h.DeleteTask)
	r.Post("/send-remind", h.SendReminder)
}

// MemberRouter registers the team-member task routes.
func MemberRouter(r chi.Router, h *TaskHandler) {
	registerListings(r, h)
	r.Post("/write-note", h.WriteNote)
	r.Post("/mark-done", h.MarkDone)
}

// LookupRouter registers the category and priority lookup routes.
func LookupRouter(r chi.Router, h *TaskHandler) {
	r.Get("/categories", h.Categories)
	r.Get("/priorities", h.Priorities)
}

func registerListings(r chi.Router, h *TaskHandler) {
	r.Get("/tasks", h.Tasks)
	r.Get("/pendings", h.Pendings)
	r.Get("/completes", h.Completes)
	r.Get("/high-priority", h.HighPriority)
	r.Get("/medium-priority", h.MediumPriority)
	r.Get("/low-priority", h.LowPriority)
	r.Get("/task-info", h.TaskInfo)
}

// Tasks lists the caller's visible tasks.
func (h *TaskHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(types.Task) bool { return true })
}

// Pendings lists the caller's visible pending tasks.
func (h *TaskHandler) Pendings(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(t types.Task) bool { return t.Pending })
}

// Completes lists the caller's visible completed tasks.
func (h *TaskHandler) Completes(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(t types.Task) bool { return t.Complete })
}

// HighPriority lists the caller's visible high-priority tasks.
func (h *TaskHandler) HighPriority(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(t types.Task) bool { return t.HighPriority })
}

// MediumPriority lists the caller's visible medium-priority tasks.
func (h *TaskHandler) MediumPriority(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(t types.Task) bool { return t.MediumPriority })
}

// LowPriority lists the caller's visible low-priority tasks.
func (h *TaskHandler) LowPriority(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(t types.Task) bool { return t.LowPriority })
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request, keep func(types.Task) bool) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	tasks, err := h.tasks.Filtered(r.Context(), claims, keep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeData(w, http.StatusOK, "Ok.", tasks)
}

// TaskInfo returns a single visible task by its taskId query parameter.
func (h *TaskHandler) TaskInfo(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	taskID, err := strconv.Atoi(r.URL.Query().Get("taskId"))
	if err != nil || taskID < 1 {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	task, err := h.tasks.Get(r.Context(), claims, taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Requested task is not found.")
		return
	}
	writeData(w, http.StatusOK, "Ok.", task)
}

type taskRequest struct {
	TaskID       int    `json:"taskId"`
	TaskTitle    string `json:"taskTitle"`
	TaskCategory int    `json:"taskCategory"`
	Deadline     string `json:"deadline"`
	Priority     string `json:"priority"`
	Member       int    `json:"member"`
	TaskNote     string `json:"taskNote"`
}

// AddTask creates a new pending task assigned to a team member.
func (h *TaskHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	task, ok := h.buildTask(w, r, req)
	if !ok {
		return
	}

	if _, err := h.tasks.Create(r.Context(), task, req.Priority); err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeSuccess(w, http.StatusCreated, "Ok.")
}

// EditTask updates an existing, not-yet-completed task.
func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID < 1 {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	existing, err := h.leadTask(r, req.TaskID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Task is not found to edit.")
		return
	}
	if existing.Complete {
		writeError(w, http.StatusBadRequest, "Task is already completed.")
		return
	}

	task, ok := h.buildTask(w, r, req)
	if !ok {
		return
	}
	task.ID = req.TaskID
	task.Pending = true

	if err := h.tasks.Update(r.Context(), task, req.Priority); err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeSuccess(w, http.StatusOK, "Ok.")
}

type taskIDRequest struct {
	TaskID int `json:"taskId"`
}

// DeleteTask removes an existing task.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	var req taskIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID < 1 {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	if err := h.tasks.Delete(r.Context(), req.TaskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Requested task is not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeSuccess(w, http.StatusOK, "Ok.")
}

type remindRequest struct {
	TaskID  int    `json:"taskId"`
	Message string `json:"message"`
}

// SendReminder mails a reminder to the task's assignee.
func (h *TaskHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	var req remindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID < 1 || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	existing, err := h.leadTask(r, req.TaskID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Requested task is not found.")
		return
	}
	if existing.Complete {
		writeError(w, http.StatusBadRequest, "Task is already completed.")
		return
	}

	if err := h.tasks.SendReminder(r.Context(), req.TaskID, req.Message); err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeSuccess(w, http.StatusOK, "Ok.")
}

type noteRequest struct {
	TaskID   int    `json:"taskId"`
	UserNote string `json:"userNote"`
}

// WriteNote stores the assignee's note on their own task.
func (h *TaskHandler) WriteNote(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID < 1 {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	if err := h.tasks.WriteNote(r.Context(), claims, req.TaskID, req.UserNote); err != nil {
		writeError(w, http.StatusNotFound, "Requested task is not found.")
		return
	}
	writeSuccess(w, http.StatusOK, "Ok.")
}

// MarkDone completes the assignee's own task.
func (h *TaskHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	var req taskIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID < 1 {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	if err := h.tasks.MarkDone(r.Context(), claims, req.TaskID); err != nil {
		writeError(w, http.StatusNotFound, "Requested task is not found.")
		return
	}
	writeSuccess(w, http.StatusOK, "Ok.")
}

// Categories lists the category lookup table.
func (h *TaskHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.tasks.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeData(w, http.StatusOK, "Ok.", categories)
}

// Priorities lists the priority lookup table.
func (h *TaskHandler) Priorities(w http.ResponseWriter, r *http.Request) {
	priorities, err := h.tasks.Priorities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeData(w, http.StatusOK, "Ok.", priorities)
}

// buildTask validates the category, assignee and deadline of an
// add/edit request and assembles the task. Writes the error response
// itself and reports ok=false when validation fails.
func (h *TaskHandler) buildTask(w http.ResponseWriter, r *http.Request, req taskRequest) (types.Task, bool) {
	req.TaskTitle = strings.TrimSpace(req.TaskTitle)
	if req.TaskTitle == "" || req.Deadline == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return types.Task{}, false
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Deadline date is not valid.")
		return types.Task{}, false
	}

	categories, err := h.tasks.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return types.Task{}, false
	}
	if !containsCategory(categories, req.TaskCategory) {
		writeError(w, http.StatusBadRequest, "Category id is not valid.")
		return types.Task{}, false
	}

	members, err := h.users.Members(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return types.Task{}, false
	}
	if !containsMember(members, req.Member) {
		writeError(w, http.StatusBadRequest, "Member id is not valid.")
		return types.Task{}, false
	}

	return types.Task{
		Title:       req.TaskTitle,
		Deadline:    deadline,
		TaskNote:    req.TaskNote,
		CategoryID:  req.TaskCategory,
		OwnerUserID: req.Member,
	}, true
}

func (h *TaskHandler) leadTask(r *http.Request, id int) (types.Task, error) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		return types.Task{}, err
	}
	return h.tasks.Get(r.Context(), claims, id)
}

func containsCategory(categories []types.Category, id int) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func containsMember(members []types.User, id int) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}

func parseDeadline(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
