package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	Component(l, "compiler").WithField("type", "Query").Debug("built")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "compiler", line["component"])
	require.Equal(t, "Query", line["type"])
	require.Equal(t, "built", line["msg"])
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	require.Error(t, err)
	_, err = New(Options{Level: "loud"})
	require.Error(t, err)
}
