package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "todo-api/api"

// listRequestMetrics collects stage timings for the structured list endpoint
// and emits them as a single log line plus a span when the request ends.
type listRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	fetchDuration  time.Duration
	encodeDuration time.Duration
	search         bool
	tasksReturned  int
	errorStage     string
}

func newListRequestMetrics(ctx context.Context, logger *log.Logger) (*listRequestMetrics, context.Context) {
	m := &listRequestMetrics{logger: logger, start: time.Now()}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, "tasks.list")
	m.span = span
	return m, spanCtx
}

func (m *listRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *listRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *listRequestMetrics) SetSearch(search bool) {
	m.search = search
}

func (m *listRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *listRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *listRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("tasks.returned", m.tasksReturned),
			attribute.Bool("tasks.search", m.search),
		)
		if err != nil {
			m.span.RecordError(err)
		}
		m.span.End()
	}
	if m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":          "/api/tasks",
		"status":         status,
		"total_ms":       durationToMillis(time.Since(m.start)),
		"search":         m.search,
		"tasks_returned": m.tasksReturned,
	}
	if m.fetchDuration > 0 {
		fields["fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("tasks.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
