package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)
	l.SetLevel("warn")

	l.Info("BOOKING", "hidden")
	l.Warn("booking", "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[BOOKING   ] shown")
	assert.Contains(t, out, "logger_test.go")
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, "ms-booking")
	require.NoError(t, err)
	l.out = &bytes.Buffer{}

	l.LogBooking("ACCEPT", 7, "quantity=2")
	l.Close()

	files, err := filepath.Glob(filepath.Join(dir, "ms-booking-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category":"BOOKING"`)
	assert.Contains(t, string(data), "[ACCEPT] event=7 - quantity=2")
}

func TestMiddlewareLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/list/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, strings.Contains(buf.String(), "GET /events/list/ - 418"))
}
