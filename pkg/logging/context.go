package logging

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type loggerKey struct{}

// Into stores the request logger on ctx.
func Into(ctx context.Context, l *zap.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// From returns the request logger, or the global one outside a request.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return zap.L()
}

func FromGin(c *gin.Context) *zap.Logger {
	if c == nil || c.Request == nil {
		return zap.L()
	}
	return From(c.Request.Context())
}

// ForRequest tags l with the request id and, when tracing is live, the
// trace and span ids.
func ForRequest(l *zap.Logger, requestID string, sc trace.SpanContext) *zap.Logger {
	fields := []zap.Field{zap.String("request_id", requestID)}
	if sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return l.With(fields...)
}

// Annotate adds fields to the logger already on the gin request, e.g. the
// caller's identity once auth has run.
func Annotate(c *gin.Context, fields ...zap.Field) {
	ctx := c.Request.Context()
	c.Request = c.Request.WithContext(Into(ctx, From(ctx).With(fields...)))
}
