package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestEventName   = "kanban.api.request"
	requestEventDomain = "app"
	requestSpanName    = "kanban.api.request"
	tracerName         = "github.com/Sheulydsp/kanban-dashboard/api"

	observabilityEvent = "observability.event"

	attrRoute          = "http.route"
	attrMethod         = "http.method"
	attrHTTPStatusCode = "http.status_code"
	attrTotalMillis    = "kanban.request.total_ms"
	attrStoreMillis    = "kanban.request.store_ms"
	attrTasksReturned  = "kanban.request.tasks_returned"
	attrTaskID         = "kanban.request.task_id"
	attrErrorStage     = "kanban.request.error_stage"
	attrErrorMessage   = "error.message"

	metricsContextKey = "request_metrics"
)

// requestMetrics collects timings for a single API request and emits them
// both as a structured log entry and as a span.
type requestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	start         time.Time
	route         string
	method        string
	storeDuration time.Duration
	tasksReturned int
	taskID        string
	errorStage    string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &requestMetrics{
		logger:        logger,
		span:          span,
		start:         time.Now(),
		route:         route,
		method:        method,
		tasksReturned: -1,
	}, spanCtx
}

func (m *requestMetrics) ObserveStore(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.storeDuration += duration
}

func (m *requestMetrics) SetTasksReturned(count int) {
	if m == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *requestMetrics) SetTaskID(id string) {
	if m == nil {
		return
	}
	m.taskID = id
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

// Log emits the observability event and ends the span.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	severityText, severityNumber := severityForStatus(status, err)

	attrs := map[string]any{
		attrRoute:          m.route,
		attrMethod:         m.method,
		attrHTTPStatusCode: status,
		attrTotalMillis:    durationToMillis(time.Since(m.start)),
	}
	if m.storeDuration > 0 {
		attrs[attrStoreMillis] = durationToMillis(m.storeDuration)
	}
	if m.tasksReturned >= 0 {
		attrs[attrTasksReturned] = m.tasksReturned
	}
	if m.taskID != "" {
		attrs[attrTaskID] = m.taskID
	}
	if m.errorStage != "" {
		attrs[attrErrorStage] = m.errorStage
	}
	if err != nil {
		attrs[attrErrorMessage] = err.Error()
	}

	if m.span != nil {
		spanAttrs := toAttributes(attrs)
		m.span.SetAttributes(spanAttrs...)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(append(spanAttrs,
			attribute.String("event.name", requestEventName),
			attribute.String("event.domain", requestEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		)...))
		switch {
		case err != nil:
			m.span.SetStatus(codes.Error, err.Error())
		case status >= http.StatusInternalServerError:
			m.span.SetStatus(codes.Error, http.StatusText(status))
		default:
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	m.logger.WithFields(fields).Log(levelForSeverity(severityNumber), observabilityEvent)
}

// RequestMetricsMiddleware wraps every request in a requestMetrics
// instance that handlers can reach through metricsFrom.
func RequestMetricsMiddleware(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			m, ctx := newRequestMetrics(req.Context(), logger, req.Method, c.Path())
			c.SetRequest(req.WithContext(ctx))
			c.Set(metricsContextKey, m)
			defer func() {
				status, logErr := responseStatus(c, err), err
				if he, ok := err.(*echo.HTTPError); ok && he.Code < http.StatusInternalServerError {
					m.SetErrorStage("request")
					logErr = nil
				}
				m.Log(status, logErr)
			}()
			return next(c)
		}
	}
}

func metricsFrom(c echo.Context) *requestMetrics {
	m, _ := c.Get(metricsContextKey).(*requestMetrics)
	return m
}

func responseStatus(c echo.Context, err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	if err != nil && !c.Response().Committed {
		return http.StatusInternalServerError
	}
	return c.Response().Status
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

func levelForSeverity(number int) log.Level {
	switch {
	case number >= 17:
		return log.ErrorLevel
	case number >= 13:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func toAttributes(values map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		}
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
