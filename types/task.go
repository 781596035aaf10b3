package types

import "time"

// Task represents an assignment created by a lead for a member.
type Task struct {
	// ID is the unique identifier of the task.
	ID int `json:"id" db:"id"`

	// Title is the short task title.
	Title string `json:"title" db:"title"`

	// Deadline is the task due date.
	Deadline time.Time `json:"deadline" db:"deadline"`

	// TaskNote is the lead's description of the work.
	TaskNote string `json:"taskNote" db:"task_note"`

	// Pending and Complete track the task status.
	Pending  bool `json:"pending" db:"pending"`
	Complete bool `json:"complete" db:"complete"`

	// Exactly one priority flag is set per task.
	HighPriority   bool `json:"highPriority" db:"high_priority"`
	MediumPriority bool `json:"mediumPriority" db:"medium_priority"`
	LowPriority    bool `json:"lowPriority" db:"low_priority"`

	// UserNote is the assignee's note, if any.
	UserNote *string `json:"userNote,omitempty" db:"user_note"`

	// CategoryID references the category lookup table.
	CategoryID int `json:"categoryId" db:"category_id"`

	// OwnerUserID is the assignee account and OwnerUsername its
	// username projection, used by role-scoped visibility filtering.
	OwnerUserID   int    `json:"ownerUserId" db:"owner_user_id"`
	OwnerUsername string `json:"ownerUsername" db:"owner_username"`

	// OwnerEmail is the assignee's address for reminder mail.
	OwnerEmail string `json:"-" db:"owner_email"`

	// CreatedAt is the timestamp when the task was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Category is a task category lookup row.
type Category struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Priority is a priority level lookup row.
type Priority struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// TaskCounts aggregates task totals by status and priority.
type TaskCounts struct {
	All      int `json:"allTask"`
	Pending  int `json:"pending"`
	Complete int `json:"complete"`
	High     int `json:"highPriority"`
	Medium   int `json:"mediumPriority"`
	Low      int `json:"lowPriority"`
}
