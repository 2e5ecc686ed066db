// Package middleware holds the Fiber middleware chain and the shared structured logger.
package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Records made with a
// request context carry that request's ids.
var Logger *slog.Logger

func init() {
	Logger = newLogger(os.Stdout, os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if env == "production" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(metaHandler{h})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// requestMeta is created once per request by ContextMiddleware and filled
// in by later middleware (tracing, ClientID, auth) as they learn more.
type requestMeta struct {
	requestID string
	traceID   string
	clientID  string
	userID    string
}

type metaKey struct{}

func metaFrom(ctx context.Context) *requestMeta {
	m, _ := ctx.Value(metaKey{}).(*requestMeta)
	return m
}

// WithUserID tags ctx with the signed-in user for log correlation.
func WithUserID(ctx context.Context, userID string) context.Context {
	if m := metaFrom(ctx); m != nil {
		m.userID = userID
		return ctx
	}
	return context.WithValue(ctx, metaKey{}, &requestMeta{userID: userID})
}

func setTraceID(ctx context.Context, traceID string) {
	if m := metaFrom(ctx); m != nil {
		m.traceID = traceID
	}
}

func setClientID(ctx context.Context, clientID string) {
	if m := metaFrom(ctx); m != nil {
		m.clientID = clientID
	}
}

type metaHandler struct {
	slog.Handler
}

func (h metaHandler) Handle(ctx context.Context, r slog.Record) error {
	if m := metaFrom(ctx); m != nil {
		for _, a := range [...]struct{ k, v string }{
			{"request_id", m.requestID},
			{"trace_id", m.traceID},
			{"client_id", m.clientID},
			{"user_id", m.userID},
		} {
			if a.v != "" {
				r.AddAttrs(slog.String(a.k, a.v))
			}
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h metaHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return metaHandler{h.Handler.WithAttrs(attrs)}
}

func (h metaHandler) WithGroup(name string) slog.Handler {
	return metaHandler{h.Handler.WithGroup(name)}
}

// ContextMiddleware attaches the request's log metadata to its user context.
// It must run after requestid and before anything that logs.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m := &requestMeta{}
		m.requestID, _ = c.Locals("requestid").(string)
		c.SetUserContext(context.WithValue(c.UserContext(), metaKey{}, m))
		return c.Next()
	}
}

// StructuredLogger logs one line per request. Health checks and scrapes are not logged.
// 5xx responses log at error, 4xx at warn.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/metrics" || strings.HasPrefix(path, "/health") {
			return c.Next()
		}
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", path),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", len(c.Response().Body())),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}
		Logger.LogAttrs(c.UserContext(), level, "request", attrs...)

		return err
	}
}
