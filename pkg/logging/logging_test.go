package logging

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerCarriesIdentity(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1}, SpanID: trace.SpanID{2}, TraceFlags: trace.FlagsSampled,
	})
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/orders", nil)
	c.Request = c.Request.WithContext(Into(c.Request.Context(), ForRequest(base, "rid-1", sc)))

	Annotate(c, zap.Uint("user_id", 9))
	FromGin(c).Info("checked")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "rid-1", fields["request_id"])
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.EqualValues(t, 9, fields["user_id"])
}

func TestForRequestSkipsInvalidSpan(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ForRequest(zap.New(core), "rid-2", trace.SpanContext{}).Info("x")
	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.Equal(t, "rid-2", fields["request_id"])
}

func TestFromFallsBackToGlobal(t *testing.T) {
	assert.Same(t, zap.L(), From(context.Background()))
	assert.Same(t, zap.L(), FromGin(nil))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, closeFn, err := New(Options{Service: "winchpoint", Env: "production", File: path})
	require.NoError(t, err)
	l.Debug("hidden")
	l.Info("order_checked_out")
	_ = l.Sync() // stdout may not support fsync
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, `"msg":"order_checked_out"`)
	assert.Contains(t, out, `"service":"winchpoint"`)

	_, _, err = New(Options{Level: "loud"})
	assert.Error(t, err)
}
