package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/chat"
	"todo-api/domain"
)

// Register wires up all routes on the provided Echo instance and installs
// the error handler that shapes unexpected faults per response mode.
func Register(e *echo.Echo, store Store, bridge Bridge, logger *log.Logger) {
	h := &handlers{store: store, bridge: bridge, logger: logger}

	e.GET("/", h.index)
	e.GET("/about", h.about)
	e.POST("/tasks", h.createTask)
	e.PUT("/tasks/:id", h.updateTask)
	e.DELETE("/tasks/:id", h.deleteTask)
	e.POST("/tasks/:id", h.deleteTask)
	e.GET("/tasks/:id/details", h.taskDetails)
	e.POST("/tasks/bulk-delete", h.bulkDelete)
	e.POST("/tasks/clear-completed", h.clearCompleted)
	e.GET("/api/tasks", h.listTasks)
	e.GET("/api/search", h.searchTasks)
	e.GET("/api/stats", h.stats)
	e.GET("/api/categories", h.categories)
	e.POST("/chat", h.chat)
	e.GET("/healthz", h.healthz)
	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))

	e.HTTPErrorHandler = h.errorHandler
}

type handlers struct {
	store  Store
	bridge Bridge
	logger *log.Logger
}

type taskResponse struct {
	Success bool         `json:"success"`
	Task    *domain.Task `json:"task,omitempty"`
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type statusResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type deleteManyResponse struct {
	Success      bool   `json:"success"`
	DeletedCount int    `json:"deleted_count"`
	Message      string `json:"message"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

type chatResponse struct {
	Success  bool              `json:"success"`
	Response string            `json:"response"`
	Action   *domain.Directive `json:"action,omitempty"`
}

// wantsJSON reports whether the caller asked for a structured response:
// either via the XMLHttpRequest header or by using a non-form verb.
func wantsJSON(c echo.Context) bool {
	if c.Request().Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	switch c.Request().Method {
	case http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func (h *handlers) healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *handlers) index(c echo.Context) error {
	filter := c.QueryParam("filter")
	sortBy := c.QueryParam("sort")
	if sortBy == "" {
		sortBy = "priority"
	}
	search := c.QueryParam("search")

	var tasks []domain.Task
	if strings.TrimSpace(search) != "" {
		tasks = h.store.Search(search)
	} else {
		tasks = h.store.List(filter, sortBy)
	}

	return c.Render(http.StatusOK, "index.html", echo.Map{
		"Tasks":         tasks,
		"Stats":         h.store.Statistics(),
		"Categories":    h.store.Categories(),
		"CurrentFilter": filter,
		"CurrentSort":   sortBy,
		"SearchQuery":   search,
		"Today":         time.Now().Format(domain.DueDateLayout),
	})
}

func (h *handlers) about(c echo.Context) error {
	return c.Render(http.StatusOK, "about.html", nil)
}

// listTasks serves the structured list surface; search wins over filter and
// sort when both are supplied, mirroring the index page.
func (h *handlers) listTasks(c echo.Context) (err error) {
	ctx := c.Request().Context()
	metrics, spanCtx := newListRequestMetrics(ctx, h.logger)
	if spanCtx != nil {
		c.SetRequest(c.Request().WithContext(spanCtx))
	}
	defer func() {
		metrics.Log(c.Response().Status, err)
	}()

	search := c.QueryParam("search")
	metrics.SetSearch(strings.TrimSpace(search) != "")

	fetchStart := time.Now()
	var tasks []domain.Task
	if strings.TrimSpace(search) != "" {
		tasks = h.store.Search(search)
	} else {
		tasks = h.store.List(c.QueryParam("filter"), c.QueryParam("sort"))
	}
	metrics.ObserveFetch(time.Since(fetchStart))
	metrics.SetTasksReturned(len(tasks))

	encodeStart := time.Now()
	err = c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	metrics.ObserveEncode(time.Since(encodeStart))
	if err != nil {
		metrics.SetErrorStage("encode_response")
	}
	return err
}

func (h *handlers) searchTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, tasksResponse{Tasks: h.store.Search(c.QueryParam("q"))})
}

func (h *handlers) createTask(c echo.Context) error {
	title := c.FormValue("title")
	priority := c.FormValue("priority")
	if priority == "" {
		priority = domain.PriorityMedium
	}
	category := c.FormValue("category")
	if category == "" {
		category = domain.DefaultCategory
	}
	dueDate := c.FormValue("due_date")

	task, err := h.store.Create(title, priority, category, dueDate)
	if err != nil {
		return h.fail(c, err)
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, taskResponse{Success: true, Task: &task})
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *handlers) updateTask(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid task id"})
	}

	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	var patch domain.TaskUpdate
	if err := dec.Decode(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
	}

	task, err := h.store.Update(id, patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, taskResponse{Success: true, Task: &task})
}

func (h *handlers) deleteTask(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid task id"})
	}
	deleted := h.store.Delete(id)
	if !wantsJSON(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
	}
	return c.JSON(http.StatusOK, statusResponse{Success: true})
}

func (h *handlers) taskDetails(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid task id"})
	}
	task, err := h.store.Get(id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, taskResponse{Success: true, Task: &task})
}

func (h *handlers) bulkDelete(c echo.Context) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	var body struct {
		TaskIDs []int `json:"task_ids"`
	}
	if err := dec.Decode(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
	}
	deleted := 0
	for _, id := range body.TaskIDs {
		if h.store.Delete(id) {
			deleted++
		}
	}
	return c.JSON(http.StatusOK, deleteManyResponse{
		Success:      true,
		DeletedCount: deleted,
		Message:      fmt.Sprintf("Deleted %d tasks", deleted),
	})
}

func (h *handlers) clearCompleted(c echo.Context) error {
	deleted := h.store.DeleteCompleted()
	return c.JSON(http.StatusOK, deleteManyResponse{
		Success:      true,
		DeletedCount: deleted,
		Message:      fmt.Sprintf("Deleted %d completed tasks", deleted),
	})
}

func (h *handlers) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Statistics())
}

func (h *handlers) categories(c echo.Context) error {
	return c.JSON(http.StatusOK, categoriesResponse{Categories: h.store.Categories()})
}

func (h *handlers) chat(c echo.Context) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	var body struct {
		Message        string `json:"message"`
		IdempotencyKey string `json:"idempotencyKey"`
	}
	if err := dec.Decode(&body); err != nil {
		return c.JSON(http.StatusBadRequest, chatResponse{Response: "invalid body"})
	}
	message := strings.TrimSpace(body.Message)
	if message == "" {
		return c.JSON(http.StatusBadRequest, chatResponse{Response: "Message is required."})
	}

	res, err := h.bridge.Respond(c.Request().Context(), message, body.IdempotencyKey)
	if err != nil {
		h.logger.WithError(err).Error("chat turn failed")
		if errors.Is(err, chat.ErrMissingAPIKey) {
			return c.JSON(http.StatusInternalServerError, chatResponse{Response: "Gemini API key is not set."})
		}
		return c.JSON(http.StatusInternalServerError, chatResponse{Response: "The assistant is unavailable right now."})
	}
	return c.JSON(http.StatusOK, chatResponse{Success: true, Response: res.Response, Action: res.Directive})
}

// fail maps store errors onto the response taxonomy: validation errors are
// client errors, unknown ids are not found, everything else is a generic
// server fault.
func (h *handlers) fail(c echo.Context, err error) error {
	var verr ValidationError
	var nferr NotFoundError

	status := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, verr.Error()
	case errors.As(err, &nferr):
		status, msg = http.StatusNotFound, nferr.Error()
	default:
		h.logger.WithError(err).Error("request failed")
	}

	if wantsJSON(c) {
		return c.JSON(status, errorResponse{Error: msg})
	}
	switch status {
	case http.StatusBadRequest:
		return c.Redirect(http.StatusSeeOther, "/")
	case http.StatusNotFound:
		return c.Render(status, "404.html", nil)
	default:
		return c.Render(status, "500.html", nil)
	}
}

// errorHandler shapes faults that escape the handlers, echo routing errors
// included, so the process never answers with an unformatted panic.
func (h *handlers) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("unhandled request error")
	}

	if wantsJSON(c) {
		_ = c.JSON(status, errorResponse{Error: msg})
		return
	}
	switch status {
	case http.StatusNotFound:
		_ = c.Render(status, "404.html", nil)
	case http.StatusBadRequest:
		_ = c.Redirect(http.StatusSeeOther, "/")
	default:
		_ = c.Render(http.StatusInternalServerError, "500.html", nil)
	}
}
