package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)
	assert.Equal(t, logger, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	logger := FromContext(context.Background())
	assert.NotNil(t, logger)
}

func TestWithRequestID(t *testing.T) {
	ctx, logger := WithRequestID(context.Background(), zap.NewNop(), "req-123")
	assert.NotNil(t, logger)
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, logger, FromContext(ctx))
}

func TestWithUserID(t *testing.T) {
	ctx, logger := WithUserID(context.Background(), zap.NewNop(), "user-1")
	assert.NotNil(t, logger)
	assert.Equal(t, "user-1", GetUserID(ctx))
}

func TestGetRequestID_NotFound(t *testing.T) {
	assert.Equal(t, "", GetRequestID(context.Background()))
	assert.Equal(t, "", GetUserID(context.Background()))
}

func TestContextKeys_Distinct(t *testing.T) {
	assert.NotEqual(t, RequestIDKey, UserIDKey)
	assert.NotEqual(t, LoggerKey, RequestIDKey)
}

func TestContextLogger_InjectsContextFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), base)
	ctx, _ = WithRequestID(ctx, FromContext(ctx), "req-42")
	ctx, _ = WithUserID(ctx, FromContext(ctx), "user-7")

	L(ctx).Info("hello")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "user-7", fields["user_id"])
}

func TestContextLogger_WithLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	WithLogger(context.Background(), base).Info("direct")
	assert.Equal(t, 1, logs.Len())
}

func TestContextLogger_NilLoggerIsSafe(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() {
		cl.Info("no logger attached")
	})
}
