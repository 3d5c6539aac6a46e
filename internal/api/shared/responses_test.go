package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cardfarm/internal/platform/logger"
)

func TestRespondWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithJSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"server error logs at error", http.StatusBadGateway, "ERROR"},
		{"client error logs at debug", http.StatusBadRequest, "DEBUG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := logger.NewTestLogger(t)
			ctx := logger.WithContext(SetTraceID(context.Background()), log)
			req := httptest.NewRequest(http.MethodPost, "/api/jobs/rank", nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			RespondWithErrorAndLog(rec, req, tt.status, "Job failed", errors.New("worker stack: /srv/app/main.go:12"))

			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "Job failed", resp.Error)
			assert.Equal(t, GetTraceID(ctx), resp.TraceID)
			assert.NotContains(t, rec.Body.String(), "main.go", "internal details stay in the logs")

			entries, err := buf.Entries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0]["level"])
			assert.Contains(t, entries[0]["error"], "main.go")
			assert.Equal(t, resp.TraceID, entries[0]["trace_id"])
		})
	}
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	assert.Len(t, GetTraceID(traced), 32)
	assert.NotEqual(t, GetTraceID(traced), GetTraceID(SetTraceID(ctx)))

	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)))
}
