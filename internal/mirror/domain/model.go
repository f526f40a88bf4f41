package domain

import "time"

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusOverdue    TaskStatus = "overdue"
	StatusBlocked    TaskStatus = "blocked"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// PriorityFromGraph maps the Planner 0-10 priority scale onto our enum.
func PriorityFromGraph(p int) TaskPriority {
	switch {
	case p >= 9:
		return PriorityUrgent
	case p >= 7:
		return PriorityHigh
	case p >= 4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Group mirrors an Azure AD group that owns planners.
type Group struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Description string     `json:"description,omitempty"`
	GroupType   string     `json:"group_type,omitempty"`
	Visibility  string     `json:"visibility,omitempty"`
	CreatedDate *time.Time `json:"created_date,omitempty"`
	LastSync    time.Time  `json:"last_sync"`
	IsActive    bool       `json:"is_active"`
	IsFavorite  bool       `json:"is_favorite"`

	TotalPlanners int `json:"total_planners"`
	TotalTasks    int `json:"total_tasks"`
	ActiveTasks   int `json:"active_tasks"`
}

// Planner mirrors a Planner plan plus locally derived metrics. IsFavorite is
// a user-local annotation; sync passes must never overwrite it.
type Planner struct {
	ID          string     `json:"id"`
	GroupID     string     `json:"group_id"`
	GroupName   string     `json:"group_name,omitempty"`
	Title       string     `json:"title"`
	Owner       string     `json:"owner,omitempty"`
	CreatedDate *time.Time `json:"created_date,omitempty"`
	LastSync    time.Time  `json:"last_sync"`
	IsArchived  bool       `json:"is_archived"`
	IsFavorite  bool       `json:"is_favorite"`

	TotalTasks      int `json:"total_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
	InProgressTasks int `json:"in_progress_tasks"`
	NotStartedTasks int `json:"not_started_tasks"`
	OverdueTasks    int `json:"overdue_tasks"`
	BlockedTasks    int `json:"blocked_tasks"`
}

// CompletionRate is always derivable from the task set (completed/total).
func (p *Planner) CompletionRate() float64 {
	if p.TotalTasks == 0 {
		return 0
	}
	return float64(p.CompletedTasks) / float64(p.TotalTasks) * 100
}

func (p *Planner) OverdueRate() float64 {
	if p.TotalTasks == 0 {
		return 0
	}
	return float64(p.OverdueTasks) / float64(p.TotalTasks) * 100
}

type Bucket struct {
	ID        string `json:"id"`
	PlannerID string `json:"planner_id"`
	Name      string `json:"name"`
	OrderHint string `json:"order_hint,omitempty"`
}

// Assignee is the enriched view of one task assignment.
type Assignee struct {
	UserID      string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email,omitempty"`
}

// Task mirrors a Planner task. Mutated only by the sync orchestrator; the
// HTTP layer treats it as read-only.
type Task struct {
	ID        string `json:"id"`
	PlannerID string `json:"planner_id"`
	BucketID  string `json:"bucket_id,omitempty"`

	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	PercentComplete int          `json:"percent_complete"`
	Status          TaskStatus   `json:"status"`
	Priority        TaskPriority `json:"priority"`
	IsOverdue       bool         `json:"is_overdue"`
	IsBlocked       bool         `json:"is_blocked"`

	StartDate     *time.Time `json:"start_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	CreatedDate   time.Time  `json:"created_date"`
	LastModified  time.Time  `json:"last_modified"`

	Labels    []string   `json:"labels,omitempty"`
	Assignees []Assignee `json:"assignees,omitempty"`

	PlannerTitle string `json:"planner_title,omitempty"`
	BucketName   string `json:"bucket_name,omitempty"`
}

// DeriveStatus applies the Planner progress semantics: a completed timestamp
// or 100% wins, any progress means in-progress, and an uncompleted task past
// its due date is overdue.
func DeriveStatus(percentComplete int, completed *time.Time, due *time.Time, now time.Time) (TaskStatus, bool) {
	status := StatusNotStarted
	switch {
	case completed != nil || percentComplete == 100:
		status = StatusCompleted
	case percentComplete > 0:
		status = StatusInProgress
	}

	overdue := false
	if due != nil && due.Before(now) && status != StatusCompleted {
		overdue = true
		status = StatusOverdue
	}
	return status, overdue
}

// TaskFilter narrows task listings and exports. Zero values mean "no filter".
type TaskFilter struct {
	PlannerID   string
	GroupID     string
	Status      TaskStatus
	Priority    TaskPriority
	AssigneeID  string
	Search      string
	OverdueOnly bool
	DueAfter    *time.Time
	DueBefore   *time.Time
}

type Page struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// StatusCount is one row of a per-status aggregate.
type StatusCount struct {
	Status TaskStatus `json:"status"`
	Count  int        `json:"count"`
}

type PriorityCount struct {
	Priority TaskPriority `json:"priority"`
	Count    int          `json:"count"`
}
