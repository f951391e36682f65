package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLConcurrentFirstUseReturnsSingleInstance(t *testing.T) {
	const n = 16
	got := make([]*zap.Logger, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = L()
		}(i)
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, l := range got {
		assert.Same(t, got[0], l)
	}

	// Init posterior no reemplaza la instancia
	Init(Config{Env: "prod"})
	assert.Same(t, got[0], L())
}

func TestScopeAddsFieldsToContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Named("cli"))

	ctx = Scope(ctx, Component("import"))
	ctx = Scope(ctx, UserName("alice"))
	FromWithFields(ctx, Op("create")).Debug("import item rejected")

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "cli", e.LoggerName)
	fields := e.ContextMap()
	assert.Equal(t, "import", fields["component"])
	assert.Equal(t, "alice", fields["user_name"])
	assert.Equal(t, "create", fields["op"])
}

func TestFromFallsBackToGlobal(t *testing.T) {
	assert.Same(t, L(), From(context.Background()))
}

func TestBuildTestEnvIsNop(t *testing.T) {
	l := build(Config{Env: "test"})
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
