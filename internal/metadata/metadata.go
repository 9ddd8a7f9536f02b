package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"romscribe/internal/gamelist"
	"romscribe/internal/services/llm"
)

// ErrNotOpen reports a Generate call outside the Open/Close window.
var ErrNotOpen = errors.New("metadata generator is not open")

// Generator fabricates one game record per ROM label.
//
// Open acquires model resources, Generate may then be called any number of
// times, and Close releases the resources. Close must run before another
// large model is loaded and is safe to call more than once.
type Generator interface {
	Open(ctx context.Context) error
	Generate(ctx context.Context, label string) (gamelist.Game, error)
	Close() error
}

// GenerationError reports that the backend call itself failed.
type GenerationError struct {
	Label string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate metadata for %s: %v", e.Label, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError reports a response that could not be decoded into a record.
type ParseError struct {
	Label string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse metadata for %s: %v", e.Label, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type record struct {
	Name        string  `json:"name"`
	Desc        string  `json:"desc"`
	Rating      float64 `json:"rating"`
	ReleaseDate string  `json:"releasedate"`
	Developer   string  `json:"developer"`
	Publisher   string  `json:"publisher"`
	Genre       string  `json:"genre"`
	Players     float64 `json:"players"`
}

// decoder turns raw model output into a game record, checking it against
// the compiled schema first.
type decoder struct {
	schema *gojsonschema.Schema
}

func newDecoder(schema []byte) (*decoder, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile metadata schema: %w", err)
	}
	return &decoder{schema: compiled}, nil
}

func (d *decoder) decode(label, raw string) (gamelist.Game, error) {
	var payload json.RawMessage
	if err := llm.DecodeLLMJSON(raw, &payload); err != nil {
		return gamelist.Game{}, &ParseError{Label: label, Raw: raw, Err: err}
	}
	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return gamelist.Game{}, &ParseError{Label: label, Raw: raw, Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return gamelist.Game{}, &ParseError{
			Label: label,
			Raw:   raw,
			Err:   fmt.Errorf("schema violation: %s", strings.Join(msgs, "; ")),
		}
	}
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return gamelist.Game{}, &ParseError{Label: label, Raw: raw, Err: err}
	}
	if strings.TrimSpace(rec.Name) == "" {
		return gamelist.Game{}, &ParseError{Label: label, Raw: raw, Err: errors.New("empty name")}
	}
	if rec.Players > math.MaxInt32 {
		return gamelist.Game{}, &ParseError{Label: label, Raw: raw, Err: fmt.Errorf("players out of range: %g", rec.Players)}
	}
	return gamelist.Game{
		Name:        strings.TrimSpace(rec.Name),
		Desc:        strings.TrimSpace(rec.Desc),
		Rating:      rec.Rating,
		ReleaseDate: strings.TrimSpace(rec.ReleaseDate),
		Developer:   strings.TrimSpace(rec.Developer),
		Publisher:   strings.TrimSpace(rec.Publisher),
		Genre:       strings.TrimSpace(rec.Genre),
		Players:     int(math.Round(rec.Players)),
	}, nil
}
