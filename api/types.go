package api

import (
	"context"

	"todo-api/chat"
	"todo-api/domain"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 64 * 1024 // 64 KiB

// Store is the task store surface the handlers consume.
type Store interface {
	Create(title, priority, category, dueDate string) (domain.Task, error)
	List(filter, sort string) []domain.Task
	Get(id int) (domain.Task, error)
	Update(id int, patch domain.TaskUpdate) (domain.Task, error)
	Delete(id int) bool
	DeleteCompleted() int
	Search(query string) []domain.Task
	Statistics() domain.Statistics
	Categories() []string
}

// Bridge runs one chat turn against the external model.
type Bridge interface {
	Respond(ctx context.Context, message, idempotencyKey string) (chat.Result, error)
}

// ValidationError is implemented by store errors caused by bad input.
type ValidationError interface {
	error
	Validation()
}

// NotFoundError is implemented by store errors for unknown task ids.
type NotFoundError interface {
	error
	NotFound()
}
