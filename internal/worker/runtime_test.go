package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cardfarm/internal/platform/logger"
	"github.com/phrazzld/cardfarm/internal/protocol"
)

var testImage = protocol.RenderResult{Format: "png", Width: 2, Height: 1, Image: []byte{0x89, 'P', 'N', 'G'}}

func staticLoader(fn JobFunc) JobLoader {
	return func(context.Context) (JobFunc, error) { return fn, nil }
}

func rankDispatch(t *testing.T) protocol.Dispatch {
	t.Helper()
	payload, err := protocol.EncodePayload(protocol.JobRank, protocol.RankPayload{
		Summoner: "Faker",
		Ranks:    []protocol.RankEntry{{Queue: "solo", Tier: "challenger", LP: 1200}},
	})
	require.NoError(t, err)
	return protocol.Dispatch{
		Name:         protocol.JobRank,
		JobID:        uuid.New(),
		DispatchedAt: time.UnixMilli(time.Now().UnixMilli()),
		Payload:      payload,
	}
}

func TestRuntime_CompletedReport(t *testing.T) {
	var got json.RawMessage
	rt := NewRuntime(Registry{
		protocol.JobRank: staticLoader(func(_ context.Context, payload json.RawMessage) (protocol.RenderResult, error) {
			got = payload
			return testImage, nil
		}),
	}, logger.DiscardLogger())

	d := rankDispatch(t)
	reply, ok, err := rt.HandleFrame(context.Background(), d.Encode())
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(d.Payload), string(got))

	report, err := protocol.DecodeReport(reply)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusCompleted, report.Status)
	assert.Equal(t, d.JobID, report.JobID)
	assert.True(t, d.DispatchedAt.Equal(report.DispatchedAt), "dispatch timestamp must be echoed")

	res, err := protocol.DecodeResult(report.Result)
	require.NoError(t, err)
	assert.Equal(t, testImage, res)
}

func TestRuntime_ErrorReport(t *testing.T) {
	rt := NewRuntime(Registry{
		protocol.JobRank: staticLoader(func(context.Context, json.RawMessage) (protocol.RenderResult, error) {
			return protocol.RenderResult{}, errors.New("missing emblem; tier=gold\nretry later")
		}),
	}, logger.DiscardLogger())

	d := rankDispatch(t)
	reply, ok, err := rt.HandleFrame(context.Background(), d.Encode())
	require.NoError(t, err)
	require.True(t, ok)

	report, err := protocol.DecodeReport(reply)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusFailed, report.Status)
	assert.Equal(t, d.JobID, report.JobID)
	assert.Equal(t, "missing emblem; tier=gold\nretry later", report.Message)
	assert.NotEmpty(t, report.Stack)
}

func TestRuntime_PanicBecomesErrorReport(t *testing.T) {
	rt := NewRuntime(Registry{
		protocol.JobRank: staticLoader(func(context.Context, json.RawMessage) (protocol.RenderResult, error) {
			panic("boom")
		}),
	}, logger.DiscardLogger())

	report := rt.Execute(context.Background(), rankDispatch(t))
	assert.Equal(t, protocol.StatusFailed, report.Status)
	assert.Contains(t, report.Message, "boom")
	assert.Contains(t, report.Stack, "goroutine")
}

func TestRuntime_InvalidResultBecomesErrorReport(t *testing.T) {
	rt := NewRuntime(Registry{
		protocol.JobRank: staticLoader(func(context.Context, json.RawMessage) (protocol.RenderResult, error) {
			return protocol.RenderResult{Format: "png"}, nil
		}),
	}, logger.DiscardLogger())

	report := rt.Execute(context.Background(), rankDispatch(t))
	assert.Equal(t, protocol.StatusFailed, report.Status)
}

func TestRuntime_UnknownTagIgnored(t *testing.T) {
	rt := NewRuntime(Registry{}, logger.DiscardLogger())

	for _, frame := range []string{"", "hello", "completed;x;{};1", "leaderboard;" + uuid.NewString() + ";1;{}"} {
		reply, ok, err := rt.HandleFrame(context.Background(), frame)
		assert.NoError(t, err, frame)
		assert.False(t, ok, frame)
		assert.Empty(t, reply, frame)
	}
}

func TestRuntime_MalformedDispatch(t *testing.T) {
	rt := NewRuntime(Registry{}, logger.DiscardLogger())

	_, ok, err := rt.HandleFrame(context.Background(), "rank;not-a-uuid;1;{}")
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, protocol.IsProtocolError(err))
}

func TestRuntime_NotRegistered(t *testing.T) {
	rt := NewRuntime(Registry{}, logger.DiscardLogger())

	report := rt.Execute(context.Background(), rankDispatch(t))
	assert.Equal(t, protocol.StatusFailed, report.Status)
	assert.Contains(t, report.Message, ErrNotRegistered.Error())
}

func TestRuntime_LoaderMemoized(t *testing.T) {
	var loads atomic.Int32
	rt := NewRuntime(Registry{
		protocol.JobRank: func(context.Context) (JobFunc, error) {
			loads.Add(1)
			return func(context.Context, json.RawMessage) (protocol.RenderResult, error) {
				return testImage, nil
			}, nil
		},
	}, logger.DiscardLogger())

	for i := 0; i < 3; i++ {
		report := rt.Execute(context.Background(), rankDispatch(t))
		require.Equal(t, protocol.StatusCompleted, report.Status)
	}
	assert.Equal(t, int32(1), loads.Load())
}

func TestRuntime_FailedLoadRetried(t *testing.T) {
	var loads atomic.Int32
	rt := NewRuntime(Registry{
		protocol.JobRank: func(context.Context) (JobFunc, error) {
			if loads.Add(1) == 1 {
				return nil, errors.New("font not found")
			}
			return func(context.Context, json.RawMessage) (protocol.RenderResult, error) {
				return testImage, nil
			}, nil
		},
	}, logger.DiscardLogger())

	first := rt.Execute(context.Background(), rankDispatch(t))
	assert.Equal(t, protocol.StatusFailed, first.Status)
	assert.Contains(t, first.Message, "font not found")

	second := rt.Execute(context.Background(), rankDispatch(t))
	assert.Equal(t, protocol.StatusCompleted, second.Status)
	assert.Equal(t, int32(2), loads.Load())
}

func TestErrorChain(t *testing.T) {
	base := errors.New("root cause")
	chain := errorChain(fmt.Errorf("load rank: %w", base))
	lines := strings.Split(chain, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "load rank: root cause")
	assert.Contains(t, lines[1], "root cause")

	assert.Empty(t, errorChain(nil))
}
