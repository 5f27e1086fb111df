package runctl

import (
	"errors"
	"time"
)

// Status is the Run Controller's lifecycle state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusStarting Status = "starting"
	StatusScanning Status = "scanning"
	StatusThinking Status = "thinking"
	StatusActing   Status = "acting"
	StatusStopped  Status = "stopped"
)

// ErrAlreadyActive is returned by Start when a Run is already underway —
// spec.md's "distinct conflict error", surfaced as HTTP 409 by the
// control surface.
var ErrAlreadyActive = errors.New("a run is already active")

// ErrMissingURL is returned by Start when no target url is given.
var ErrMissingURL = errors.New("url is required")

// Options is the explicit record every Run begins from — spec.md §9's
// "configuration surfaces" note: no implicit global state.
type Options struct {
	URL             string
	PersonaName     string
	Objective       string
	DebugMode       bool
	ModelName       string
	TTSEnabled      bool
	HeadlessMode    bool
	SaveTrace       bool
	SaveThoughts    bool
	SaveScreenshots bool
	MonkeyMode      bool
	BareMode        bool
}

// RunInfo is what Start returns: the resolved configuration of the Run
// it just began.
type RunInfo struct {
	RunID       string    `json:"runId"`
	Persona     string    `json:"persona"`
	Objective   string    `json:"objective"`
	ModelName   string    `json:"modelName"`
	StartURL    string    `json:"startUrl"`
	ArtifactDir string    `json:"artifactDir"`
	StartedAt   time.Time `json:"startedAt"`
	Status      Status    `json:"status"`
}
