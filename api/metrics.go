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
	tracerName        = "mock-server/api"
	requestSpanName   = "tasks.request"
	requestLogMessage = "tasks.request.metrics"
)

// requestMetrics collects per-request timings and outcome, then emits them as
// one span and one log entry.
type requestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time
	method string
	route  string

	decodeDuration time.Duration
	storeDuration  time.Duration
	encodeDuration time.Duration

	taskID        *int64
	tasksReturned int
	removed       int
	created       *bool
	errorStage    string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		),
	)
	return &requestMetrics{
		logger:        logger,
		span:          span,
		start:         time.Now(),
		method:        method,
		route:         route,
		tasksReturned: -1,
		removed:       -1,
	}, ctx
}

func (m *requestMetrics) ObserveDecode(d time.Duration) {
	if d > 0 {
		m.decodeDuration = d
	}
}

func (m *requestMetrics) ObserveStore(d time.Duration) {
	if d > 0 {
		m.storeDuration = d
	}
}

func (m *requestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *requestMetrics) SetTaskID(id int64) { m.taskID = &id }

func (m *requestMetrics) SetTasksReturned(n int) {
	if n < 0 {
		n = 0
	}
	m.tasksReturned = n
}

func (m *requestMetrics) SetRemoved(n int) {
	if n < 0 {
		n = 0
	}
	m.removed = n
}

func (m *requestMetrics) SetCreated(created bool) { m.created = &created }

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log ends the span and writes the request summary. It is safe on a nil
// receiver.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	severityText, severityNumber := severityForStatus(status, err)
	totalMs := durationToMillis(time.Since(m.start))

	fields := log.Fields{
		"route":           m.route,
		"method":          m.method,
		"status":          status,
		"total_ms":        totalMs,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	attrs := []attribute.KeyValue{
		attribute.Int("http.status_code", status),
		attribute.Float64("tasks.total_ms", totalMs),
	}

	if m.decodeDuration > 0 {
		fields["decode_ms"] = durationToMillis(m.decodeDuration)
		attrs = append(attrs, attribute.Float64("tasks.decode_ms", durationToMillis(m.decodeDuration)))
	}
	if m.storeDuration > 0 {
		fields["store_ms"] = durationToMillis(m.storeDuration)
		attrs = append(attrs, attribute.Float64("tasks.store_ms", durationToMillis(m.storeDuration)))
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
		attrs = append(attrs, attribute.Float64("tasks.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.taskID != nil {
		fields["task_id"] = *m.taskID
		attrs = append(attrs, attribute.Int64("tasks.task_id", *m.taskID))
	}
	if m.tasksReturned >= 0 {
		fields["tasks_returned"] = m.tasksReturned
		attrs = append(attrs, attribute.Int("tasks.tasks_returned", m.tasksReturned))
	}
	if m.removed >= 0 {
		fields["removed"] = m.removed
		attrs = append(attrs, attribute.Int("tasks.removed", m.removed))
	}
	if m.created != nil {
		fields["created"] = *m.created
		attrs = append(attrs, attribute.Bool("tasks.created", *m.created))
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
		attrs = append(attrs, attribute.String("tasks.error_stage", m.errorStage))
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		switch {
		case err != nil:
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		case status >= http.StatusInternalServerError:
			m.span.SetStatus(codes.Error, http.StatusText(status))
		default:
			m.span.SetStatus(codes.Ok, "")
		}
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(requestLogMessage)
	case "WARN":
		entry.Warn(requestLogMessage)
	default:
		entry.Info(requestLogMessage)
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
