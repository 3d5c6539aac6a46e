package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cardfarm/internal/api/shared"
	"github.com/phrazzld/cardfarm/internal/platform/logger"
)

func TestNewTraceMiddleware(t *testing.T) {
	log, buf := logger.NewTestLogger(t)

	var seen string
	handler := NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Len(t, seen, 32)
	assert.Equal(t, seen, rec.Header().Get("X-Trace-ID"))

	entries, err := buf.EntriesWithMessage("inside handler")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, seen, entries[0]["trace_id"], "handler logger carries the trace id")
}

func TestNewTraceMiddleware_UniquePerRequest(t *testing.T) {
	ids := make(map[string]bool)
	handler := NewTraceMiddleware(logger.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids[shared.GetTraceID(r.Context())] = true
	}))
	for i := 0; i < 50; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Len(t, ids, 50)
}
