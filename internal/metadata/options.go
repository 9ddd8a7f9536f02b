package metadata

import _ "embed"

const (
	DefaultContextSize = 4096
	DefaultGPULayers   = 1
)

// DefaultSystemPrompt defines every field the model must fill in.
const DefaultSystemPrompt = `Create a JSON document with the following fields and values for a North American Sega Genesis game rom file.

name: string, the displayed name for the game
desc: string, a description of the game including any media description released, characters, plot points, goals, etc
rating: float, the rating for the game, expressed as a floating point number between 0 and 1. Arbitrary values are fine (ES can display half-stars, quarter-stars, etc).
releasedate: datetime, the date the game was released. Displayed as date only, time is ignored.
developer: string, the development studio that created the game.
publisher: string, the company that published the game.
genre: string, the (primary) genre for the game.
players: integer, the number of players the game supports.`

//go:embed game.schema.json
var defaultSchema []byte

// DefaultSchema returns a copy of the built-in game schema.
func DefaultSchema() []byte {
	return append([]byte(nil), defaultSchema...)
}

// Options configures a metadata backend.
type Options struct {
	SystemPrompt string
	// Schema is the JSON schema every response must satisfy.
	Schema      []byte
	ContextSize int
	GPULayers   int
	ModelPath   string
}

// DefaultOptions returns the built-in prompt contract with no model selected.
func DefaultOptions() Options {
	return Options{
		SystemPrompt: DefaultSystemPrompt,
		Schema:       DefaultSchema(),
		ContextSize:  DefaultContextSize,
		GPULayers:    DefaultGPULayers,
	}
}

func (o Options) withDefaults() Options {
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	if len(o.Schema) == 0 {
		o.Schema = DefaultSchema()
	}
	if o.ContextSize <= 0 {
		o.ContextSize = DefaultContextSize
	}
	if o.GPULayers < 0 {
		o.GPULayers = DefaultGPULayers
	}
	return o
}
