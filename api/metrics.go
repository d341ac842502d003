package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "taskflow-api/api"
	tasksRoute       = "/api/tasks/:email"
	tasksSpanName    = "tasks.list"
	tasksEventName   = "tasks.list"
	tasksEventDomain = "taskflow"
)

// taskListMetrics instruments the owner task-list route, the hottest path in
// the API: every board render and every reconciling refetch lands here.
type taskListMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	fetchDuration  time.Duration
	encodeDuration time.Duration
	tasksReturned  int
	errorStage     string
}

func newTaskListMetrics(ctx context.Context, logger *log.Logger) (*taskListMetrics, context.Context) {
	m := &taskListMetrics{logger: logger, start: time.Now()}
	if ctx == nil {
		ctx = context.Background()
	}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, tasksSpanName)
	m.span = span
	return m, spanCtx
}

func (m *taskListMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *taskListMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *taskListMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *taskListMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finishes the span and emits one structured observability event for the
// request. Safe to call exactly once, from a defer.
func (m *taskListMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMillis := durationToMillis(time.Since(m.start))

	attrs := map[string]any{
		"http.route":              tasksRoute,
		"http.status_code":        status,
		"taskflow.tasks.returned": m.tasksReturned,
		"taskflow.tasks.total_ms": totalMillis,
	}
	if m.fetchDuration > 0 {
		attrs["taskflow.tasks.fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		attrs["taskflow.tasks.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrs["taskflow.tasks.error_stage"] = m.errorStage
	}
	if err != nil {
		attrs["error"] = err.Error()
	}

	var traceID string
	if m.span != nil {
		spanAttrs := []attribute.KeyValue{
			attribute.String("http.route", tasksRoute),
			attribute.Int("http.status_code", status),
			attribute.Int("taskflow.tasks.returned", m.tasksReturned),
			attribute.Float64("taskflow.tasks.total_ms", totalMillis),
		}
		if m.errorStage != "" {
			spanAttrs = append(spanAttrs, attribute.String("taskflow.tasks.error_stage", m.errorStage))
		}
		m.span.SetAttributes(spanAttrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(spanAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			m.span.SetStatus(codes.Error, m.errorStage)
			if err != nil {
				m.span.RecordError(err)
			}
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	severityText, severityNumber := "INFO", 9
	if err != nil || status >= http.StatusInternalServerError {
		severityText, severityNumber = "ERROR", 17
	}
	fields := log.Fields{
		"event.name":      tasksEventName,
		"event.domain":    tasksEventDomain,
		"attributes":      attrs,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if traceID != "" {
		fields["trace_id"] = traceID
	}
	entry := m.logger.WithFields(fields)
	if severityText == "ERROR" {
		entry.Error("observability.event")
		return
	}
	entry.Info("observability.event")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
