package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger captures JSON log output for assertions.
type TestLogger struct {
	zerolog.Logger
	Buffer *bytes.Buffer
}

func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()
	buf := &bytes.Buffer{}
	return &TestLogger{
		Logger: zerolog.New(buf).Level(zerolog.TraceLevel),
		Buffer: buf,
	}
}

func (tl *TestLogger) Output() string {
	return tl.Buffer.String()
}

// Lines returns the captured output split per log entry.
func (tl *TestLogger) Lines() []string {
	out := strings.TrimSpace(tl.Output())
	if out == "" {
		return []string{}
	}
	return strings.Split(out, "\n")
}

func (tl *TestLogger) Contains(substr string) bool {
	return strings.Contains(tl.Output(), substr)
}
