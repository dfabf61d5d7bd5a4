package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerGatesByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Debugf("should not appear")
	l.Infof("should not appear either")
	l.Warnf("this one should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "this one should appear")
}

func TestLoggerWithAppendsFields(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, LevelInfo)
	child := root.With("query_id", 42).With("worker_id", 3)
	child.Infof("processed")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "query_id=42")
	assert.Contains(t, line, "worker_id=3")
}

func TestLoggerWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, LevelInfo)
	_ = root.With("k", "v")
	root.Infof("plain")
	assert.NotContains(t, buf.String(), "k=v")
}
