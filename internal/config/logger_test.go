package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_LevelParsing(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"unknown falls back to info", "verbose", zerolog.InfoLevel},
		{"empty falls back to info", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewLogger(LoggerConfig{Level: tt.level, Format: "json"})
			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}
