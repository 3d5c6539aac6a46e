package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankPayloadJSON(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := EncodePayload(JobRank, RankPayload{
		Summoner: "Faker; the GOAT",
		Ranks: []RankEntry{
			{Queue: "solo", Tier: "challenger", LP: 1400, Wins: 200, Losses: 150},
			{Queue: "flex", Tier: "gold", Division: "II", LP: 12},
		},
	})
	require.NoError(t, err)
	return raw
}

func TestDispatchRoundTrip(t *testing.T) {
	d := Dispatch{
		Name:         JobRank,
		JobID:        uuid.New(),
		DispatchedAt: time.UnixMilli(1700000000123),
		Payload:      rankPayloadJSON(t),
	}

	frame := d.Encode()
	assert.True(t, strings.HasPrefix(frame, "rank;"+d.JobID.String()+";1700000000123;{"))

	got, err := DecodeDispatch(frame)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, d.JobID, got.JobID)
	assert.True(t, d.DispatchedAt.Equal(got.DispatchedAt))
	assert.JSONEq(t, string(d.Payload), string(got.Payload))
}

func TestDecodeDispatchErrors(t *testing.T) {
	id := uuid.New().String()
	payload := string(rankPayloadJSON(t))

	cases := map[string]string{
		"too few fields":   "rank;" + id + ";123",
		"unknown job":      "banner;" + id + ";123;" + payload,
		"bad id":           "rank;not-a-uuid;123;" + payload,
		"bad timestamp":    "rank;" + id + ";soon;" + payload,
		"payload mismatch": "rank;" + id + ";123;" + `{"queue":"ranked","teams":[]}`,
		"invalid json":     "rank;" + id + ";123;{",
	}

	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDispatch(frame)
			require.Error(t, err)
			assert.True(t, IsProtocolError(err), "expected protocol error, got %v", err)
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}

	_, err := DecodeDispatch("banner;" + id + ";123;{}")
	assert.ErrorIs(t, err, ErrUnknownJob)
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = DecodeDispatch("rank;" + id + ";123;" + `{"queue":"ranked","teams":[]}`)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestCompletedRoundTrip(t *testing.T) {
	d := Dispatch{Name: JobRank, JobID: uuid.New(), DispatchedAt: time.UnixMilli(42)}
	result := json.RawMessage(`{"note":"a;b;c","n":1}`)

	frame := Completed(d, result).Encode()
	assert.Equal(t, "completed;"+d.JobID.String()+`;{"note":"a;b;c","n":1};42`, frame)

	got, err := DecodeReport(frame)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, d.JobID, got.JobID)
	assert.JSONEq(t, string(result), string(got.Result))
	assert.Equal(t, int64(42), got.DispatchedAt.UnixMilli())
}

func TestFailedRoundTripEscapesText(t *testing.T) {
	d := Dispatch{Name: JobMatch, JobID: uuid.New(), DispatchedAt: time.UnixMilli(7)}
	msg := `asset missing; champions\Ahri.png`
	stack := "goroutine 1 [running]:\nmain.main()\n\t/src/main.go:10"

	frame := Failed(d, msg, stack).Encode()
	assert.NotContains(t, frame, "\n")

	got, err := DecodeReport(frame)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, msg, got.Message)
	assert.Equal(t, stack, got.Stack)
	assert.Equal(t, int64(7), got.DispatchedAt.UnixMilli())
}

func TestDecodeReportErrors(t *testing.T) {
	id := uuid.New().String()
	cases := map[string]string{
		"unknown tag":          "progress;" + id + ";50",
		"completed no ts":      "completed;" + id,
		"completed bad json":   "completed;" + id + ";{oops;12",
		"completed bad ts":     "completed;" + id + ";{};later",
		"error too few fields": "error;" + id + ";boom;12",
		"error bad id":         "error;nope;boom;stack;12",
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeReport(frame)
			require.Error(t, err)
			assert.True(t, IsProtocolError(err))
			assert.True(t, errors.Is(err, ErrMalformedFrame) || errors.Is(err, ErrInvalidPayload))
		})
	}
}

func TestTag(t *testing.T) {
	assert.Equal(t, "completed", Tag("completed;x;y"))
	assert.Equal(t, "ping", Tag("ping"))
	assert.Equal(t, "", Tag(""))
}

func TestProtocolErrorTruncatesFrame(t *testing.T) {
	_, err := DecodeReport("bogus;" + strings.Repeat("x", 200))
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.LessOrEqual(t, len(pe.Frame), 67)
}
