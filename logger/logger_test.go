package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogErrorCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.LogError(errors.New("boom"), "push failed", "camera", 3)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "push failed", entry["message"])
	assert.Equal(t, float64(3), entry["camera"])
	assert.Equal(t, "boom", entry["msg"])
}

func TestLogDebugRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.LogDebug("hidden")
	assert.Zero(t, buf.Len())

	l.SetDebug(true)
	l.LogDebug("shown", "camera", 1)
	assert.Equal(t, "shown", decodeLine(t, &buf)["msg"])
}

func TestLogRequestRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	h := l.LogRequest(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))

	entry := decodeLine(t, &buf)
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "/status", entry["uri"])
}
