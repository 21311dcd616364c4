package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("engine").WithUserID("U1234").Info("event processed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "event processed", entry["message"])
	assert.Equal(t, "engine", entry["module"])
	assert.Equal(t, "U1234", entry["user_id"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestWarnLevelRename(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)
	log.Warn("careful")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.WithError(errors.New("boom")).Error("visible")
	assert.NotZero(t, buf.Len())
}

func TestWithFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)
	log.WithFields(map[string]any{"a": 1, "b": "two"}).Info("multi")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.EqualValues(t, 1, entry["a"])
	assert.Equal(t, "two", entry["b"])
}
