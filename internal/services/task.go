package services

import (
	"context"
	"fmt"

	"github.com/assigna-app/apiserver/internal/auth"
	"github.com/assigna-app/apiserver/internal/mail"
	"github.com/assigna-app/apiserver/types"
)

// TaskRepository defines persistence operations for tasks and the
// category/priority lookup tables.
type TaskRepository interface {
	GetByID(ctx context.Context, id int) (types.Task, error)
	List(ctx context.Context) ([]types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	Update(ctx context.Context, task types.Task) error
	Delete(ctx context.Context, id int) error
	MarkDone(ctx context.Context, id int) error
	SetUserNote(ctx context.Context, id int, note string) error
	ListCategories(ctx context.Context) ([]types.Category, error)
	ListPriorities(ctx context.Context) ([]types.Priority, error)
}

// TaskService encapsulates task use-cases. Every listing operation runs
// through VisibleTasks so a member only ever sees their own tasks.
type TaskService struct {
	repo     TaskRepository
	notifier mail.Notifier
}

func NewTaskService(repo TaskRepository, notifier mail.Notifier) *TaskService {
	return &TaskService{repo: repo, notifier: notifier}
}

// VisibleTasks restricts the task set to what the authenticated caller
// may see: a lead sees everything, a member only tasks whose owner
// username matches the verified claim name. Pure projection; identity
// comes from decoded token claims, never from a request parameter.
func VisibleTasks(tasks []types.Task, claims auth.Claims) []types.Task {
	if claims.Role == types.RoleLead {
		return tasks
	}
	visible := make([]types.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.OwnerUsername == claims.Name {
			visible = append(visible, task)
		}
	}
	return visible
}

// All returns the caller's visible tasks.
func (s *TaskService) All(ctx context.Context, claims auth.Claims) ([]types.Task, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return VisibleTasks(tasks, claims), nil
}

// Filtered returns the caller's visible tasks matching the keep
// predicate. Backs the status and priority listings.
func (s *TaskService) Filtered(ctx context.Context, claims auth.Claims, keep func(types.Task) bool) ([]types.Task, error) {
	tasks, err := s.All(ctx, claims)
	if err != nil {
		return nil, err
	}
	filtered := make([]types.Task, 0, len(tasks))
	for _, task := range tasks {
		if keep(task) {
			filtered = append(filtered, task)
		}
	}
	return filtered, nil
}

// Get returns a single task, still gated by visibility.
func (s *TaskService) Get(ctx context.Context, claims auth.Claims, id int) (types.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Task{}, err
	}
	if claims.Role != types.RoleLead && task.OwnerUsername != claims.Name {
		return types.Task{}, ErrUserNotFound
	}
	return task, nil
}

// Counts aggregates the caller's visible tasks by status and priority.
func (s *TaskService) Counts(ctx context.Context, claims auth.Claims) (types.TaskCounts, error) {
	tasks, err := s.All(ctx, claims)
	if err != nil {
		return types.TaskCounts{}, err
	}

	counts := types.TaskCounts{All: len(tasks)}
	for _, task := range tasks {
		if task.Pending {
			counts.Pending++
		}
		if task.Complete {
			counts.Complete++
		}
		if task.HighPriority {
			counts.High++
		}
		if task.MediumPriority {
			counts.Medium++
		}
		if task.LowPriority {
			counts.Low++
		}
	}
	return counts, nil
}

// Create stores a new pending task with exactly one priority flag set.
func (s *TaskService) Create(ctx context.Context, task types.Task, priority string) (types.Task, error) {
	task.Pending = true
	task.Complete = false
	applyPriority(&task, priority)
	return s.repo.Create(ctx, task)
}

// Update edits a task's assignable fields.
func (s *TaskService) Update(ctx context.Context, task types.Task, priority string) error {
	applyPriority(&task, priority)
	return s.repo.Update(ctx, task)
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// MarkDone completes a task on behalf of its assignee.
func (s *TaskService) MarkDone(ctx context.Context, claims auth.Claims, id int) error {
	if _, err := s.Get(ctx, claims, id); err != nil {
		return err
	}
	return s.repo.MarkDone(ctx, id)
}

// WriteNote stores the assignee's note on a task.
func (s *TaskService) WriteNote(ctx context.Context, claims auth.Claims, id int, note string) error {
	if _, err := s.Get(ctx, claims, id); err != nil {
		return err
	}
	return s.repo.SetUserNote(ctx, id, note)
}

// SendReminder mails the task's assignee.
func (s *TaskService) SendReminder(ctx context.Context, id int, message string) error {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return nil
	}
	subject := fmt.Sprintf("Reminder: %s", task.Title)
	return s.notifier.Send(ctx, task.OwnerEmail, subject, message)
}

// Categories lists the category lookup table.
func (s *TaskService) Categories(ctx context.Context) ([]types.Category, error) {
	return s.repo.ListCategories(ctx)
}

// Priorities lists the priority lookup table.
func (s *TaskService) Priorities(ctx context.Context) ([]types.Priority, error) {
	return s.repo.ListPriorities(ctx)
}

func applyPriority(task *types.Task, priority string) {
	task.HighPriority = priority == "High"
	task.MediumPriority = priority == "Medium"
	task.LowPriority = priority == "Low"
}
