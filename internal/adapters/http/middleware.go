package http

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerRequestID = "X-Request-Id"
	ctxKeyRequestID = "request_id"
)

// RequestIDMiddleware ensures every request has a unique X-Request-Id.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(headerRequestID)
			if id == "" {
				id = generateID()
			}
			c.Response().Header().Set(headerRequestID, id)
			c.Set(ctxKeyRequestID, id)
			return next(c)
		}
	}
}

// LoggingMiddleware logs each request with structured fields. Handler
// errors are logged at Error and passed on to echo's error handler.
func LoggingMiddleware(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			attrs := []any{
				"request_id", c.Get(ctxKeyRequestID),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				logger.ErrorContext(c.Request().Context(), "request failed", append(attrs, "error", err)...)
				return err
			}
			logger.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		}
	}
}

// TracingMiddleware opens a server span per request and stores it in the
// request context, so fetches run on the request get a child span.
func TracingMiddleware(tracer trace.Tracer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}

			ctx, span := tracer.Start(req.Context(), req.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.route", route),
				),
			)
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			span.SetAttributes(attribute.Int("http.status_code", c.Response().Status))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
}

func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
