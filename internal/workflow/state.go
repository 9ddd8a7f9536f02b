package workflow

// State is a step of a run. A run moves through the states in declaration
// order; the image states are skipped when cover art is disabled.
type State string

const (
	StateIdle              State = "idle"
	StateDirectoryPrepared State = "directory_prepared"
	StateGeneratorReady    State = "generator_ready"
	StateTextPassRunning   State = "text_pass_running"
	StateTextPassComplete  State = "text_pass_complete"
	StateImagePassRunning  State = "image_pass_running"
	StateImagePassComplete State = "image_pass_complete"
	StateSerialized        State = "serialized"
	StateDone              State = "done"
)

// Stage names the pass an item result belongs to.
type Stage string

const (
	StageText  Stage = "text"
	StageImage Stage = "image"
)

// Status is the outcome of one item in one stage.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
	// StatusSkipped marks items never attempted because the pass aborted.
	StatusSkipped Status = "skipped"
)
