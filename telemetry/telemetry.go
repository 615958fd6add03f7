// Package telemetry exposes Prometheus metrics and optional OpenTelemetry tracing.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "trainerpages"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainerpages_http_requests_total",
			Help: "Total number of HTTP requests received.",
		},
		[]string{"route", "method", "code"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trainerpages_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	submissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trainerpages_submissions_total",
		Help: "Intake form submissions stored.",
	})
	documentsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainerpages_documents_generated_total",
			Help: "Trainer documents generated.",
		},
		[]string{"enhanced"},
	)
	emailsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trainerpages_emails_failed_total",
		Help: "Transactional emails that could not be sent.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, submissionsTotal, documentsGenerated, emailsFailed)
}

// SubmissionStored counts a stored intake submission.
func SubmissionStored() { submissionsTotal.Inc() }

// DocumentGenerated counts a generated trainer document.
func DocumentGenerated(enhanced bool) {
	documentsGenerated.WithLabelValues(strconv.FormatBool(enhanced)).Inc()
}

// EmailFailed counts a swallowed email failure.
func EmailFailed() { emailsFailed.Inc() }

// Init installs a global tracer provider for the given backend ("stdout"; anything
// else disables tracing). The returned func flushes and stops the provider.
func Init(backend string) (func(context.Context) error, error) {
	if backend != "stdout" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Wrap adds otelhttp tracing and context propagation around the server handler.
func Wrap(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, serviceName)
}

// Middleware records request counts and durations labelled by route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			httpRequestsTotal.WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(route, c.Request().Method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
