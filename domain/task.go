package domain

import "time"

// Priority levels recognized by the store.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// DefaultCategory is assigned when a task is created without one.
const DefaultCategory = "general"

// DueDateLayout is the wire and snapshot format for due dates.
const DueDateLayout = "2006-01-02"

// Task represents a single to-do item.
type Task struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Priority  string    `json:"priority"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	DueDate   string    `json:"due_date,omitempty"`
	Notes     string    `json:"notes"`
}

// TaskUpdate carries a partial update; nil fields keep their current value.
type TaskUpdate struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
	Priority  *string `json:"priority"`
	Category  *string `json:"category"`
	DueDate   *string `json:"due_date"`
	Notes     *string `json:"notes"`
}

// Statistics aggregates task counts for the dashboard. Priority and category
// counts cover pending tasks only.
type Statistics struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Pending        int            `json:"pending"`
	CompletionRate float64        `json:"completion_rate"`
	PriorityCounts map[string]int `json:"priority_counts"`
	CategoryCounts map[string]int `json:"category_counts"`
}

// ValidPriority reports whether p is one of the recognized priority levels.
func ValidPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}
