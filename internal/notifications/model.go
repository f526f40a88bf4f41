package notifications

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Type string

const (
	TypeInfo          Type = "info"
	TypeWarning       Type = "warning"
	TypeError         Type = "error"
	TypeSuccess       Type = "success"
	TypeTaskAssigned  Type = "task_assigned"
	TypeTaskOverdue   Type = "task_overdue"
	TypeTaskCompleted Type = "task_completed"
)

// Notification is a user-facing alert row. Read state is a user-local
// annotation: sync passes never touch it.
type Notification struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Type       Type       `json:"type"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ActionURL  string     `json:"action_url,omitempty"`
	ActionText string     `json:"action_text,omitempty"`
	EntityType string     `json:"entity_type,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
}
