package entity

import (
	"slices"
	"time"
)

type Mode string

const (
	ModeTextToVideo        Mode = "Text to Video"
	ModeFramesToVideo      Mode = "Frames to Video"
	ModeIngredientsToVideo Mode = "Ingredients to Video"
	ModeCreateImage        Mode = "Create Image"
)

// Modes lists every mode label the host page shows in its mode selector.
var Modes = []Mode{ModeTextToVideo, ModeFramesToVideo, ModeIngredientsToVideo, ModeCreateImage}

func (m Mode) Valid() bool {
	return slices.Contains(Modes, m)
}

// ModeForImageCount is the form surface's rule for picking a mode.
func ModeForImageCount(n int) Mode {
	switch {
	case n <= 0:
		return ModeTextToVideo
	case n == 1:
		return ModeFramesToVideo
	default:
		return ModeIngredientsToVideo
	}
}

type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

// CropLabel is the word the crop dialog uses for the ratio.
func (a AspectRatio) CropLabel() string {
	switch a {
	case AspectPortrait:
		return "portrait"
	case AspectSquare:
		return "square"
	default:
		return "landscape"
	}
}

const MaxImages = 3

type ImageFile struct {
	Name     string `json:"name" validate:"required"`
	MimeType string `json:"mimeType" validate:"required"`
	Data     []byte `json:"encodedBytes" validate:"required"`
}

type StoryboardRequest struct {
	Prompts     []string    `json:"prompts" validate:"required,min=1,dive,nonblank"`
	Images      []ImageFile `json:"images" validate:"max=3,dive"`
	AspectRatio AspectRatio `json:"aspectRatio" validate:"required,oneof=16:9 9:16 1:1"`
	Outputs     int         `json:"outputs" validate:"min=1"`
	Mode        Mode        `json:"mode" validate:"required,storyboard_mode"`
}

type PhaseName string

const (
	PhaseClearTimeline     PhaseName = "ClearTimeline"
	PhaseSwitchMode        PhaseName = "SwitchMode"
	PhaseConfigureSettings PhaseName = "ConfigureSettings"
	PhaseUploadImages      PhaseName = "UploadImages"
	PhaseGenerateScene     PhaseName = "GenerateScene"
	PhaseVerifyClipCount   PhaseName = "VerifyClipCount"
	PhaseDownload          PhaseName = "Download"
)

type PhaseOutcome struct {
	Phase     PhaseName
	Succeeded bool
	Detail    string
}

type StoryboardResult struct {
	RunID              string `json:"runId,omitempty"`
	Succeeded          bool   `json:"succeeded"`
	ScenesCompleted    int    `json:"scenesCompleted"`
	TotalScenes        int    `json:"totalScenes"`
	FailedSceneIndices []int  `json:"failedSceneIndices"`
	ErrorMessage       string `json:"errorMessage,omitempty"`
}

// Run-level error messages a caller may branch on.
const (
	ErrorBusy                 = "busy"
	ErrorTransportUnavailable = "transport unavailable"
)

// FailedResult is the result of a run that was refused before any phase.
func FailedResult(totalScenes int, message string) StoryboardResult {
	return StoryboardResult{
		TotalScenes:        totalScenes,
		FailedSceneIndices: []int{},
		ErrorMessage:       message,
	}
}

type PollResult struct {
	Satisfied    bool
	LastObserved any
	Elapsed      time.Duration
}

func (p PollResult) ElapsedMs() int64 {
	return p.Elapsed.Milliseconds()
}

// ActionOutcome is what an action executor reports. Detail is set on failure.
type ActionOutcome struct {
	Succeeded bool
	Detail    string
}

func Succeeded() ActionOutcome {
	return ActionOutcome{Succeeded: true}
}

func Failed(detail string) ActionOutcome {
	return ActionOutcome{Detail: detail}
}

type Element struct {
	Handle       string      `json:"handle"`
	Tag          string      `json:"tag"`
	Text         string      `json:"text"`
	HTML         string      `json:"html"`
	Placeholder  string      `json:"placeholder"`
	AriaLabel    string      `json:"ariaLabel"`
	Role         string      `json:"role"`
	Type         string      `json:"type"`
	Disabled     bool        `json:"disabled"`
	HasFileInput bool        `json:"hasFileInput"`
	BoundingBox  BoundingBox `json:"box"`
}

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b BoundingBox) Top() float64 {
	return b.Y
}

type EventLevel string

const (
	EventInfo    EventLevel = "info"
	EventSuccess EventLevel = "success"
	EventWarn    EventLevel = "warn"
	EventError   EventLevel = "error"
)

// Event is one entry of a run journal.
type Event struct {
	At      time.Time  `json:"at"`
	Level   EventLevel `json:"level"`
	Phase   PhaseName  `json:"phase,omitempty"`
	Message string     `json:"message"`
}
