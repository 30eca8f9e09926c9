package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"bookclub/internal/identity"
)

const subjectKey = "subject"

// logRequests renders chain errors itself so the logged status is final.
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := s.handleError(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	status := c.Response().StatusCode()
	attrs := []any{
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	}
	if sc := trace.SpanContextFromContext(c.UserContext()); sc.HasTraceID() {
		attrs = append(attrs, "trace_id", sc.TraceID().String())
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request", attrs...)
	} else {
		s.logger.Info("request", attrs...)
	}
	return nil
}

func (s *Server) traceRequests(c *fiber.Ctx) error {
	carrier := propagation.HeaderCarrier(c.GetReqHeaders())
	ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)
	ctx, span := s.tracer.Start(ctx, c.Method()+" "+c.Path(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.target", c.OriginalURL()),
		),
	)
	defer span.End()
	c.SetUserContext(ctx)

	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status, _, _ = describe(err)
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("http.route", c.Route().Path), attribute.Int("http.status_code", status))
	if status >= fiber.StatusInternalServerError {
		span.SetStatus(codes.Error, "server error")
	}
	return err
}

func (s *Server) authenticate(c *fiber.Ctx) error {
	token, err := identity.BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	subject, err := s.verifier.Verify(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(subjectKey, subject)
	return c.Next()
}

func subject(c *fiber.Ctx) string {
	sub, _ := c.Locals(subjectKey).(string)
	return sub
}
