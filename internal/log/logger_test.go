package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "debug", zerolog.DebugLevel},
		{"development", "WARN", zerolog.WarnLevel},
		{"development", "error", zerolog.ErrorLevel},
		{"development", "info", zerolog.InfoLevel},
		{"production", "verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.env, tt.level), "%s/%s", tt.env, tt.level)
	}
}

func TestNewWithWriter(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "production", "")

	logger.Debug().Msg("hidden")
	logger.Info().Str("user_id", "u1").Msg("user registered")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "user registered")
	assert.Contains(t, out, "env=production")
	assert.Contains(t, out, "user_id=u1")
}
