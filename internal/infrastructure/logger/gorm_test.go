package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level zapcore.Level, gormLevel gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	return NewGormLogger(zap.New(core), gormLevel, opts...), recorded
}

func recordQuery() (string, int64) {
	return "SELECT * FROM integration_records WHERE sync_phase = 'failed'", 3
}

func TestNewGormLogger(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		gl, _ := newObservedGormLogger(zapcore.InfoLevel, gormlogger.Info)

		assert.Equal(t, gormlogger.Info, gl.logLevel)
		assert.Equal(t, 200*time.Millisecond, gl.slowThreshold)
		assert.True(t, gl.ignoreRecordNotFoundError)
	})

	t.Run("applies options", func(t *testing.T) {
		gl, _ := newObservedGormLogger(zapcore.InfoLevel, gormlogger.Info,
			WithSlowThreshold(500*time.Millisecond),
			WithIgnoreRecordNotFoundError(false),
		)

		assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
		assert.False(t, gl.ignoreRecordNotFoundError)
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(zapcore.InfoLevel, gormlogger.Info)

	clone := gl.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gl.logLevel)
	cloned, ok := clone.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, cloned.logLevel)
}

func TestGormLogger_Levels(t *testing.T) {
	t.Run("info passes through", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.InfoLevel, gormlogger.Info)

		gl.Info(context.Background(), "connected to %s", "circletel")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "connected to circletel")
	})

	t.Run("silent suppresses info", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.InfoLevel, gormlogger.Silent)

		gl.Info(context.Background(), "suppressed")

		assert.Empty(t, recorded.All())
	})

	t.Run("warn and error keep their levels", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.WarnLevel, gormlogger.Info)

		gl.Warn(context.Background(), "pool saturation at %d", 25)
		gl.Error(context.Background(), "connection lost")

		logs := recorded.All()
		require.Len(t, logs, 2)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
	})
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("failed query logs an error", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.ErrorLevel, gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), recordQuery, errors.New("connection reset"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "query failed", logs[0].Message)
	})

	t.Run("record not found is ignored by default", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.ErrorLevel, gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), recordQuery, gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("slow query logs a warning", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.WarnLevel, gormlogger.Warn,
			WithSlowThreshold(time.Nanosecond),
		)

		gl.Trace(context.Background(), time.Now().Add(-time.Second), recordQuery, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "slow query", logs[0].Message)
	})

	t.Run("normal query logs at debug", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), recordQuery, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "query", logs[0].Message)
		assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), recordQuery, nil)

		assert.Empty(t, recorded.All())
	})

	t.Run("carries the request id from context", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(zapcore.DebugLevel, gormlogger.Info)

		ctx := context.WithValue(context.Background(), RequestIDKey, "req-77")
		gl.Trace(ctx, time.Now(), recordQuery, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		found := false
		for _, field := range logs[0].Context {
			if field.Key == "request_id" {
				found = true
				assert.Equal(t, "req-77", field.String)
			}
		}
		assert.True(t, found, "request_id should be in log fields")
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
