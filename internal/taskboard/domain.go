package taskboard

import "errors"

var (
	// ErrNotFound indicates the task group does not exist.
	ErrNotFound = errors.New("taskboard: not found")
	// ErrInvalidCell reports a move referencing a column or row that does not exist.
	ErrInvalidCell = errors.New("taskboard: invalid cell")
	// ErrStaleBoard reports a move whose source cell no longer holds the expected task.
	ErrStaleBoard = errors.New("taskboard: board changed")
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusOnHold     Status = "on_hold"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// Task is one schedulable unit of work. EstimatedTime and SumTime use the H:MM[:SS] form.
type Task struct {
	ID             int64  `json:"id"`
	GroupID        int64  `json:"group_id"`
	Title          string `json:"title"`
	Status         Status `json:"status"`
	AssignedUserID *int64 `json:"assigned_user_id,omitempty"`
	Position       int    `json:"position"`
	EstimatedTime  string `json:"estimated_time"`
	SumTime        string `json:"sum_time"`
}

// Member is a user belonging to the task group; each member gets a board column.
type Member struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// Header identifies one board column.
type Header struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Status Status `json:"status,omitempty"`
	UserID int64  `json:"user_id,omitempty"`
}

// Card is a task decorated with its time progress.
type Card struct {
	Task
	Progress float64 `json:"progress"`
	Band     Band    `json:"band"`
}

// Board is the column grid. Columns[key] holds rows, each row a list of cards; rows are
// nominally singletons but may be empty while a move is in flight.
type Board struct {
	Headers []Header            `json:"headers"`
	Columns map[string][][]Card `json:"columns"`
}

// Cell addresses a row within a column.
type Cell struct {
	Column string `json:"column" validate:"required"`
	Row    int    `json:"row" validate:"gte=0"`
}

// Placement is the persisted position of a task after a move.
type Placement struct {
	TaskID   int64
	Position int
}

// TaskUpdate carries the fields a move may change on the moved task.
type TaskUpdate struct {
	TaskID         int64
	Status         Status
	AssignedUserID *int64
}
