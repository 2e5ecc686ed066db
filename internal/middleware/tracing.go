package middleware

import (
	"net/http"

	"github.com/pillow12360/eureka-ssul/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span per request, continuing any
// incoming traceparent, and returns the trace id in X-Trace-ID.
// Requests under /profiles/:id are tagged with the profile id.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(),
			propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Method()),
				semconv.URLPath(c.Path()),
				semconv.ClientAddress(c.IP()),
			),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID := sc.TraceID().String()
			setTraceID(ctx, traceID)
			c.Set("X-Trace-ID", traceID)
		}
		c.SetUserContext(ctx)

		err := c.Next()

		// the matched route is only known once the router has run
		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(semconv.HTTPRoute(route))
		if id := c.Params("id"); id != "" {
			span.SetAttributes(observability.ProfileAttr(id))
		}
		if uid := UserIDFrom(c); uid != "" {
			span.SetAttributes(semconv.EnduserID(uid))
		}

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		if err != nil {
			span.RecordError(err)
		}
		if err != nil || status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}
