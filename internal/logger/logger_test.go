package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name:   "default config",
			config: nil,
		},
		{
			name: "json config without output",
			config: &Config{
				Level:  "debug",
				Format: "json",
			},
		},
		{
			name: "console config",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: io.Discard,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.config)
			assert.NotNil(t, logger)
		})
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "info", Format: "json", Output: buf})

	logger.Info("generated schema module")

	entry := decode(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "generated schema module", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_Component(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "info", Format: "json", Output: buf})

	child := logger.Component("codegen").With().Int("files", 3).Logger()
	child.Info("wrote output")

	entry := decode(t, buf)
	assert.Equal(t, "codegen", entry["component"])
	assert.Equal(t, float64(3), entry["files"])
	assert.Equal(t, "wrote output", entry["message"])
}

func TestLogger_ErrorWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "error", Format: "json", Output: buf})

	logger.ErrorWith("fetch failed", errors.New("connection refused"), map[string]interface{}{
		"schema":  "public",
		"attempt": 2,
	})

	entry := decode(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "fetch failed", entry["message"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "public", entry["schema"])
	assert.Equal(t, float64(2), entry["attempt"])
}

func TestLogger_Context(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "info", Format: "json", Output: buf})

	ctx := logger.WithContext(context.Background())
	FromContext(ctx).Info("from context")

	entry := decode(t, buf)
	assert.Equal(t, "from context", entry["message"])
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	assert.Same(t, L(), FromContext(context.Background()))
}

func TestNop_DiscardsOutput(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().ErrorWith("ignored", errors.New("x"), nil)
	})
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(*Logger)
		expected bool
	}{
		{
			name:     "debug level logs debug",
			level:    "debug",
			logFunc:  func(l *Logger) { l.Debug("debug message") },
			expected: true,
		},
		{
			name:     "info level skips debug",
			level:    "info",
			logFunc:  func(l *Logger) { l.DebugWith("debug message", nil) },
			expected: false,
		},
		{
			name:     "warn level logs warn",
			level:    "warn",
			logFunc:  func(l *Logger) { l.WarnWith("retrying", errors.New("503"), nil) },
			expected: true,
		},
		{
			name:     "error level skips info",
			level:    "error",
			logFunc:  func(l *Logger) { l.Info("info message") },
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(&Config{Level: tt.level, Format: "json", Output: buf})

			tt.logFunc(logger)

			if tt.expected {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func BenchmarkLogger_WithFields(b *testing.B) {
	logger := New(&Config{Level: "info", Format: "json", Output: io.Discard})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.With().
			Str("schema", "public").
			Int("table", i).
			Logger().
			Info("benchmark message")
	}
}
