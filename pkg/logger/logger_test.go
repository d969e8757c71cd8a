package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "dayboard", "debug")

	l.WithField("task_id", "t1").Debug("task created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "task created", line["message"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "dayboard", line["service"])
	assert.Equal(t, "t1", line["task_id"])
	assert.Contains(t, line, "ts")
}

func TestNewBadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "dayboard", "chatty")

	l.Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestFromContext(t *testing.T) {
	l := Discard()
	entry := l.WithField("request_id", "abc")

	ctx := WithEntry(context.Background(), entry)
	assert.Equal(t, "abc", FromContext(ctx, l).Data["request_id"])
	assert.NotNil(t, FromContext(context.Background(), l))
}
