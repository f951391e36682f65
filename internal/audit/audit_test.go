package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/identitystore/internal/observability/logger"
)

func TestLogWritesMaskedEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))

	Log(ctx, UserCreated, logger.UserID("abc"), Email("alice@example.com"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "audit", entry.LoggerName)
	fields := entry.ContextMap()
	assert.Equal(t, UserCreated, fields["event"])
	assert.Equal(t, "abc", fields["user_id"])
	assert.Equal(t, "a…@e….com", fields["email"])
	assert.NotEmpty(t, fields["ts"])
}
