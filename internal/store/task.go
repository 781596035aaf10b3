package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/assigna-app/apiserver/types"
)

const taskColumns = `t.id, t.title, t.deadline, t.task_note, t.pending, t.complete,
		t.high_priority, t.medium_priority, t.low_priority, t.user_note,
		t.category_id, t.owner_user_id, u.username, u.email, t.created_at`

// TaskRepository handles persistence for tasks and the category and
// priority lookup tables. Every task row carries its owner's username
// projection so role-scoped filtering never needs a second query.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) GetByID(ctx context.Context, id int) (types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.owner_user_id
		WHERE t.id = $1`
	return r.scanTask(r.db.QueryRowContext(ctx, query, id))
}

// List returns every task with its owner projection, oldest first.
func (r *TaskRepository) List(ctx context.Context) ([]types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.owner_user_id
		ORDER BY t.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	task.CreatedAt = time.Now()

	const query = `
		INSERT INTO tasks (title, deadline, task_note, pending, complete,
			high_priority, medium_priority, low_priority, user_note,
			category_id, owner_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.Deadline,
		task.TaskNote,
		task.Pending,
		task.Complete,
		task.HighPriority,
		task.MediumPriority,
		task.LowPriority,
		task.UserNote,
		task.CategoryID,
		task.OwnerUserID,
		task.CreatedAt,
	).Scan(&task.ID); err != nil {
		return types.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task types.Task) error {
	const query = `
		UPDATE tasks
		SET title = $1,
			deadline = $2,
			task_note = $3,
			high_priority = $4,
			medium_priority = $5,
			low_priority = $6,
			category_id = $7,
			owner_user_id = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Deadline,
		task.TaskNote,
		task.HighPriority,
		task.MediumPriority,
		task.LowPriority,
		task.CategoryID,
		task.OwnerUserID,
		task.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// MarkDone flips a task to complete.
func (r *TaskRepository) MarkDone(ctx context.Context, id int) error {
	const query = `
		UPDATE tasks
		SET pending = FALSE,
			complete = TRUE
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetUserNote stores the assignee's note on a task.
func (r *TaskRepository) SetUserNote(ctx context.Context, id int, note string) error {
	const query = `
		UPDATE tasks
		SET user_note = $1
		WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, note, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *TaskRepository) ListCategories(ctx context.Context) ([]types.Category, error) {
	const query = `SELECT id, name FROM categories ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []types.Category
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *TaskRepository) ListPriorities(ctx context.Context) ([]types.Priority, error) {
	const query = `SELECT id, name FROM priorities ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var priorities []types.Priority
	for rows.Next() {
		var p types.Priority
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		priorities = append(priorities, p)
	}
	return priorities, rows.Err()
}

func (r *TaskRepository) scanTask(row rowScanner) (types.Task, error) {
	var task types.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Deadline,
		&task.TaskNote,
		&task.Pending,
		&task.Complete,
		&task.HighPriority,
		&task.MediumPriority,
		&task.LowPriority,
		&task.UserNote,
		&task.CategoryID,
		&task.OwnerUserID,
		&task.OwnerUsername,
		&task.OwnerEmail,
		&task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}
