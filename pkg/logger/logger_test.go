package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToInfoLevelOnInvalidLevel(t *testing.T) {
	l := New(Config{Level: "not-a-level"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNewHonorsExplicitLevel(t *testing.T) {
	l := New(Config{Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestNewUsesJSONFormatterWhenConfigured(t *testing.T) {
	l := New(Config{Format: "json"})
	_, ok := l.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestWithComponentInjectsFieldIntoEveryEntry(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json"})
	l.SetOutput(&buf)

	sub := l.WithComponent("runtime")
	sub.Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "runtime", entry["component"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestWithComponentDoesNotOverrideExplicitField(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json"})
	l.SetOutput(&buf)

	sub := l.WithComponent("runtime")
	sub.WithField("component", "override").Info("hi")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "override", entry["component"])
}
