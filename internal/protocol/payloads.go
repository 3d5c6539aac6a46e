package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RankPayload is the input of a JobRank job.
type RankPayload struct {
	Summoner string      `json:"summoner"         validate:"required,max=32"`
	Locale   string      `json:"locale,omitempty" validate:"omitempty,min=2,max=8"`
	Ranks    []RankEntry `json:"ranks"            validate:"required,min=1,max=2,dive"`
}

// RankEntry is one ranked queue standing.
type RankEntry struct {
	Queue    string `json:"queue"              validate:"required,oneof=solo flex"`
	Tier     string `json:"tier"               validate:"required,oneof=unranked iron bronze silver gold platinum emerald diamond master grandmaster challenger"`
	Division string `json:"division,omitempty" validate:"omitempty,oneof=I II III IV"`
	LP       int    `json:"lp"                 validate:"gte=0"`
	Wins     int    `json:"wins"               validate:"gte=0"`
	Losses   int    `json:"losses"             validate:"gte=0"`
}

// MatchPayload is the input of a JobMatch job.
type MatchPayload struct {
	Locale          string       `json:"locale,omitempty" validate:"omitempty,min=2,max=8"`
	Queue           string       `json:"queue"            validate:"required"`
	DurationSeconds int          `json:"duration_seconds" validate:"gte=0"`
	Teams           []TeamResult `json:"teams"            validate:"len=2,dive"`
}

// TeamResult is one side of a match.
type TeamResult struct {
	Win     bool         `json:"win"`
	Players []PlayerLine `json:"players" validate:"min=1,max=5,dive"`
}

// PlayerLine is a single player's scoreboard row.
type PlayerLine struct {
	Name     string `json:"name"     validate:"required,max=32"`
	Champion string `json:"champion" validate:"required"`
	Kills    int    `json:"kills"    validate:"gte=0"`
	Deaths   int    `json:"deaths"   validate:"gte=0"`
	Assists  int    `json:"assists"  validate:"gte=0"`
}

// RenderResult is the output of every job: an encoded image.
type RenderResult struct {
	Format string `json:"format" validate:"required,oneof=png"`
	Width  int    `json:"width"  validate:"gt=0"`
	Height int    `json:"height" validate:"gt=0"`
	Image  []byte `json:"image"  validate:"required"`
}

// NewPayload returns a pointer to the zero payload type for name.
func NewPayload(name JobName) (any, error) {
	switch name {
	case JobRank:
		return &RankPayload{}, nil
	case JobMatch:
		return &MatchPayload{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
}

// EncodePayload validates v against the schema of name and marshals it.
// v may be the payload struct, a pointer to it, or already-encoded JSON.
func EncodePayload(name JobName, v any) (json.RawMessage, error) {
	var raw []byte
	switch p := v.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		raw = b
	}

	// Round-tripping through the typed struct rejects payloads that were
	// built for a different job.
	if _, err := DecodePayload(name, raw); err != nil {
		return nil, err
	}
	return compact(raw)
}

// DecodePayload strictly decodes raw into the payload type for name and
// validates it.
func DecodePayload(name JobName, raw []byte) (any, error) {
	target, err := NewPayload(name)
	if err != nil {
		return nil, err
	}
	if err := decodeStrict(raw, target); err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidPayload, name, err)
	}
	if err := validate.Struct(target); err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrInvalidPayload, name, err)
	}
	return target, nil
}

// EncodeResult validates and marshals a job result.
func EncodeResult(r RenderResult) (json.RawMessage, error) {
	if err := validate.Struct(r); err != nil {
		return nil, fmt.Errorf("%w: result: %v", ErrInvalidPayload, err)
	}
	return json.Marshal(r)
}

// DecodeResult strictly decodes and validates a job result.
func DecodeResult(raw []byte) (RenderResult, error) {
	var r RenderResult
	if err := decodeStrict(raw, &r); err != nil {
		return RenderResult{}, fmt.Errorf("%w: result: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(r); err != nil {
		return RenderResult{}, fmt.Errorf("%w: result: %v", ErrInvalidPayload, err)
	}
	return r, nil
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

func compact(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return buf.Bytes(), nil
}
