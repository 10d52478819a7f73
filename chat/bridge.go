package chat

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// Store is the task store surface the bridge reads and mutates.
type Store interface {
	Create(title, priority, category, dueDate string) (domain.Task, error)
	Update(id int, patch domain.TaskUpdate) (domain.Task, error)
	Delete(id int) bool
	List(filter, sort string) []domain.Task
}

// Generator produces a model reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Deduper guards directive application against retried chat requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, key string) (bool, error)
}

// Result is a completed chat turn: the embellished natural-language reply
// plus the directive the model attached, if any.
type Result struct {
	Response  string            `json:"response"`
	Directive *domain.Directive `json:"action,omitempty"`
}

// Bridge forwards user messages to the model and applies any directive the
// reply carries to the task store.
type Bridge struct {
	store   Store
	gen     Generator
	deduper Deduper
	logger  *log.Logger
}

// NewBridge wires a chat bridge. The deduper may be a NopDeduper when no
// shared key store is configured.
func NewBridge(store Store, gen Generator, deduper Deduper, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New()
	}
	return &Bridge{store: store, gen: gen, deduper: deduper, logger: logger}
}

// Respond runs one chat turn. Transport failures and unparseable replies
// surface as errors; a malformed or unrecognized directive does not, the
// natural-language part is still returned. The idempotency key, uuid-filled
// when empty, prevents a retried request from applying its directive twice.
func (b *Bridge) Respond(ctx context.Context, message, idempotencyKey string) (Result, error) {
	reply, err := b.gen.Generate(ctx, b.buildPrompt(message))
	if err != nil {
		return Result{}, err
	}

	text, directive := domain.SplitReply(reply)
	res := Result{}
	if directive.Recognized() {
		res.Directive = &directive
		if idempotencyKey == "" {
			idempotencyKey = uuid.NewString()
		}
		if b.admit(ctx, idempotencyKey) {
			text += b.apply(directive)
		}
	}
	res.Response = wrapReply(text)
	return res, nil
}

func (b *Bridge) buildPrompt(message string) string {
	tasks := b.store.List("", "")
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("- %s (priority: %s, completed: %t)", t.Title, t.Priority, t.Completed))
	}
	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"), message)
}

// admit reports whether the directive behind key should be applied. Deduper
// failures admit the directive; losing deduplication is preferable to
// dropping the mutation.
func (b *Bridge) admit(ctx context.Context, key string) bool {
	if b.deduper == nil {
		return true
	}
	fresh, err := b.deduper.Add(ctx, key)
	if err != nil {
		b.logger.WithError(err).Warn("chat deduper unavailable")
		return true
	}
	if !fresh {
		b.logger.WithField("idempotency_key", key).Info("duplicate chat directive skipped")
	}
	return fresh
}

// apply runs the store mutation for the directive and returns an HTML note
// to append to the reply, empty when there is nothing to report. A directive
// the store rejects is logged and swallowed; the chat turn still succeeds.
func (b *Bridge) apply(d domain.Directive) string {
	switch d.Action {
	case domain.DirectiveAdd:
		task, err := b.store.Create(d.Title, d.Priority, domain.DefaultCategory, "")
		if err != nil {
			b.logger.WithError(err).Warn("chat add directive rejected")
			return ""
		}
		return addConfirmation(task)
	case domain.DirectiveComplete:
		done := true
		if _, err := b.store.Update(d.ID, domain.TaskUpdate{Completed: &done}); err != nil {
			b.logger.WithError(err).Warn("chat complete directive rejected")
		}
	case domain.DirectiveDelete:
		if !b.store.Delete(d.ID) {
			b.logger.WithField("id", d.ID).Warn("chat delete directive targeted unknown task")
		}
	case domain.DirectiveList:
		// Read-only, nothing to apply.
	}
	return ""
}

func addConfirmation(t domain.Task) string {
	return fmt.Sprintf(
		"<div class='ai-success'><span class='ai-icon'>✅</span> <span class='ai-task-title'>%s</span> <span class='ai-task-priority %s'>%s priority</span> added successfully!</div>",
		html.EscapeString(t.Title), t.Priority, capitalize(t.Priority))
}

func wrapReply(text string) string {
	return "<div class='ai-response ai-todo-list'>" + strings.ReplaceAll(text, "\n", "<br>") + "</div>"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
