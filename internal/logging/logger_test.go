package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
	assert.True(t, ValidLevel("warn"))
	assert.False(t, ValidLevel("loud"))
}

func TestJSONLoggerCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelDebug, FormatJSON).WithRun("r-1").WithSolver("cp").With("plan", "tea.json")

	log.Info("solved", "makespan", 12)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "solved", entry["msg"])
	assert.Equal(t, "r-1", entry["run_id"])
	assert.Equal(t, "cp", entry["solver"])
	assert.Equal(t, "tea.json", entry["plan"])
	assert.Equal(t, float64(12), entry["makespan"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelWarn, FormatText)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "shown"))
}

func TestNilLoggerIsSilent(t *testing.T) {
	var log *Logger
	assert.NotPanics(t, func() {
		log.WithRun("x").With("a", 1).Info("nothing")
	})
	assert.NotPanics(t, func() { Nop().Error("discarded") })
}
