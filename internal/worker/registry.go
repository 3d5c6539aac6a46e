package worker

import (
	"context"
	"encoding/json"

	"github.com/phrazzld/cardfarm/internal/protocol"
)

// JobFunc renders one job from its validated JSON payload.
type JobFunc func(ctx context.Context, payload json.RawMessage) (protocol.RenderResult, error)

// JobLoader prepares a JobFunc. It runs once per job name per process, so it
// is the place for expensive setup such as parsing fonts or decoding
// backgrounds.
type JobLoader func(ctx context.Context) (JobFunc, error)

// Registry maps every job name to its loader.
type Registry map[protocol.JobName]JobLoader
