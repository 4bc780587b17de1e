package testutil

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a debug-level logger. Output goes to t.Log when tests
// run with -v and is discarded otherwise.
func NewTestLogger(t *testing.T) zerolog.Logger {
	var w io.Writer = io.Discard
	if testing.Verbose() {
		w = testLogWriter{t: t}
	}
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// testLogWriter forwards log lines to t.Log.
type testLogWriter struct {
	t *testing.T
}

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
