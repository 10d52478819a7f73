package storage

import (
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// Sort orders accepted by List.
const (
	SortPriority  = "priority"
	SortCreatedAt = "created_at"
	SortTitle     = "title"
	SortDueDate   = "due_date"
)

// Store owns the in-memory task collection and its snapshot file. Every
// mutating operation rewrites the snapshot before returning; a failed write
// is logged and the in-memory state stays authoritative.
type Store struct {
	mu     sync.Mutex
	tasks  []domain.Task
	nextID int
	path   string
	logger *log.Logger
	now    func() time.Time
}

// New loads the snapshot at path and returns a ready Store. A missing,
// unreadable or malformed snapshot starts an empty store with the id counter
// at 1; only the id counter from a snapshot is trusted when it is positive.
func New(path string, logger *log.Logger) *Store {
	s := &Store{
		tasks:  []domain.Task{},
		nextID: 1,
		path:   path,
		logger: logger,
		now:    time.Now,
	}
	snap, err := readSnapshot(path)
	if err != nil {
		if logger != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WithError(err).Warn("snapshot unreadable, starting empty")
		}
		return s
	}
	if snap.Tasks != nil {
		s.tasks = snap.Tasks
	}
	if snap.NextID > 0 {
		s.nextID = snap.NextID
	}
	return s
}

// Create validates the title, assigns a fresh id and persists the new task.
// An unrecognized priority falls back to medium, an empty category to the
// default category.
func (s *Store) Create(title, priority, category, dueDate string) (domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, &ValidationError{msg: "title is required"}
	}
	if !domain.ValidPriority(priority) {
		priority = domain.PriorityMedium
	}
	if strings.TrimSpace(category) == "" {
		category = domain.DefaultCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := domain.Task{
		ID:        s.nextID,
		Title:     title,
		Priority:  priority,
		Category:  category,
		CreatedAt: s.now().UTC(),
		DueDate:   dueDate,
	}
	s.nextID++
	s.tasks = append(s.tasks, t)
	s.persistLocked()
	return t, nil
}

// List returns a fresh, sorted slice of the tasks matching filter. An
// unrecognized filter passes everything through; an unrecognized sort order
// falls back to the priority order. Stored order is never mutated.
func (s *Store) List(filter, sortBy string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if matchFilter(t, filter) {
			out = append(out, t)
		}
	}
	sortTasks(out, sortBy)
	return out
}

// Get returns the task with the given id.
func (s *Store) Get(id int) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], nil
	}
	return domain.Task{}, &NotFoundError{ID: id}
}

// Update applies the non-nil fields of patch to the task with the given id.
// An empty incoming title is a validation error; an invalid priority value is
// dropped without failing the call.
func (s *Store) Update(id int, patch domain.TaskUpdate) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Task{}, &NotFoundError{ID: id}
	}
	t := &s.tasks[i]
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Task{}, &ValidationError{msg: "title is required"}
		}
		t.Title = title
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.Priority != nil && domain.ValidPriority(*patch.Priority) {
		t.Priority = *patch.Priority
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	s.persistLocked()
	return *t, nil
}

// Delete removes the task with the given id and reports whether anything was
// removed. The snapshot is rewritten only when something was.
func (s *Store) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.persistLocked()
	return true
}

// DeleteCompleted removes every completed task and returns the count removed.
func (s *Store) DeleteCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tasks[:0]
	removed := 0
	for _, t := range s.tasks {
		if t.Completed {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	if removed > 0 {
		s.persistLocked()
	}
	return removed
}

// Search matches query case-insensitively against title or notes. A blank
// query returns an empty result, not the full list.
func (s *Store) Search(query string) []domain.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []domain.Task{}
	if q == "" {
		return out
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Notes), q) {
			out = append(out, t)
		}
	}
	return out
}

// Statistics aggregates task counts. Priority and category breakdowns count
// pending tasks only; the completion rate is 0 for an empty store.
func (s *Store) Statistics() domain.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domain.Statistics{
		Total: len(s.tasks),
		PriorityCounts: map[string]int{
			domain.PriorityHigh:   0,
			domain.PriorityMedium: 0,
			domain.PriorityLow:    0,
		},
		CategoryCounts: map[string]int{},
	}
	for _, t := range s.tasks {
		if t.Completed {
			st.Completed++
			continue
		}
		st.Pending++
		st.PriorityCounts[t.Priority]++
		st.CategoryCounts[categoryOf(t)]++
	}
	if st.Total > 0 {
		st.CompletionRate = float64(st.Completed) / float64(st.Total) * 100
	}
	return st
}

// Categories returns the sorted distinct categories across all tasks,
// completed ones included.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, t := range s.tasks {
		seen[categoryOf(t)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s *Store) indexLocked(id int) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}
	if err := writeSnapshot(s.path, snapshot{Tasks: s.tasks, NextID: s.nextID}); err != nil && s.logger != nil {
		s.logger.WithError(err).Error("snapshot write failed")
	}
}

func categoryOf(t domain.Task) string {
	if t.Category == "" {
		return domain.DefaultCategory
	}
	return t.Category
}

func matchFilter(t domain.Task, filter string) bool {
	switch {
	case filter == "completed":
		return t.Completed
	case filter == "pending":
		return !t.Completed
	case domain.ValidPriority(filter):
		return t.Priority == filter
	case strings.HasPrefix(filter, "category:"):
		return t.Category == strings.TrimPrefix(filter, "category:")
	default:
		return true
	}
}

var priorityRank = map[string]int{
	domain.PriorityHigh:   0,
	domain.PriorityMedium: 1,
	domain.PriorityLow:    2,
}

func rank(priority string) int {
	if r, ok := priorityRank[priority]; ok {
		return r
	}
	return len(priorityRank)
}

// farFuture stands in for a missing or unparseable due date so that such
// tasks sort strictly after every dated one.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func dueTime(t domain.Task) time.Time {
	if t.DueDate == "" {
		return farFuture
	}
	d, err := time.Parse(domain.DueDateLayout, t.DueDate)
	if err != nil {
		return farFuture
	}
	return d
}

func sortTasks(tasks []domain.Task, by string) {
	switch by {
	case SortCreatedAt:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		})
	case SortTitle:
		sort.SliceStable(tasks, func(i, j int) bool {
			return strings.ToLower(tasks[i].Title) < strings.ToLower(tasks[j].Title)
		})
	case SortDueDate:
		sort.SliceStable(tasks, func(i, j int) bool {
			return dueTime(tasks[i]).Before(dueTime(tasks[j]))
		})
	default:
		// Priority order: incomplete before complete, then high to low.
		sort.SliceStable(tasks, func(i, j int) bool {
			if tasks[i].Completed != tasks[j].Completed {
				return !tasks[i].Completed
			}
			return rank(tasks[i].Priority) < rank(tasks[j].Priority)
		})
	}
}
