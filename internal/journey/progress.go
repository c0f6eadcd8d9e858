package journey

import (
	"math"

	"github.com/pbaille/mindatlas/internal/domain"
)

// Progress is what the progress header shows
type Progress struct {
	CurrentStep int             `json:"current_step"`
	TotalSteps  int             `json:"total_steps"`
	PathType    domain.PathType `json:"path_type,omitempty"`
	Percent     int             `json:"percent"`
}

// TotalSteps is the length of the wizard for a path. Before the path is
// chosen the short count is shown.
func TotalSteps(p domain.PathType) int {
	switch p {
	case domain.PathReal, domain.PathNotReal:
		return 8
	default:
		return 4
	}
}

// ComputeProgress is a pure function of the step and path. Percent is
// rounded to the nearest integer and is not capped.
func ComputeProgress(step int, p domain.PathType) Progress {
	total := TotalSteps(p)
	return Progress{
		CurrentStep: step,
		TotalSteps:  total,
		PathType:    p,
		Percent:     int(math.Round(float64(step) / float64(total) * 100)),
	}
}

// Page names a wizard screen
type Page string

const (
	PageCheckIn          Page = "check-in"
	PageCaptureThoughts  Page = "capture-thoughts"
	PageEmotionalCapture Page = "emotional-capture"
	PageEmotionalContext Page = "emotional-context"
	PageWhoseThought     Page = "whose-thought"
	PagePlanOfAction     Page = "plan-of-action"
	PageReevaluate       Page = "reevaluate"
	PageTransformThought Page = "transform-thought"
	PageHabit            Page = "habit"
	PageComplete         Page = "complete"
)

var pages = map[domain.PathType][]Page{
	domain.PathReal: {
		PageCheckIn, PageCaptureThoughts, PageEmotionalCapture, PageEmotionalContext,
		PageWhoseThought, PagePlanOfAction, PageReevaluate, PageComplete,
	},
	domain.PathNotReal: {
		PageCheckIn, PageCaptureThoughts, PageEmotionalCapture, PageEmotionalContext,
		PageWhoseThought, PageTransformThought, PageHabit, PageComplete,
	},
	domain.PathEmotional: {
		PageCheckIn, PageCaptureThoughts, PageEmotionalCapture, PageEmotionalContext,
	},
	"": {
		PageCheckIn, PageCaptureThoughts,
	},
}

// PageAt returns the screen shown at step for the path. Steps past the end
// of a path land on the completion screen.
func PageAt(step int, p domain.PathType) Page {
	seq, ok := pages[p]
	if !ok {
		seq = pages[""]
	}
	if step < 1 {
		step = 1
	}
	if step > len(seq) {
		return PageComplete
	}
	return seq[step-1]
}
