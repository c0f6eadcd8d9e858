package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pbaille/mindatlas/internal/domain"
)

func TestTotalStepsPerPath(t *testing.T) {
	tests := []struct {
		path  domain.PathType
		total int
	}{
		{domain.PathReal, 8},
		{domain.PathNotReal, 8},
		{domain.PathEmotional, 4},
		{"", 4},
	}
	for _, tt := range tests {
		for step := 0; step <= 12; step++ {
			p := ComputeProgress(step, tt.path)
			assert.Equal(t, tt.total, p.TotalSteps, "path %q step %d", tt.path, step)
			assert.Equal(t, step, p.CurrentStep)
			assert.Equal(t, tt.path, p.PathType)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 13, ComputeProgress(1, domain.PathReal).Percent)
	assert.Equal(t, 38, ComputeProgress(3, domain.PathNotReal).Percent)
	assert.Equal(t, 50, ComputeProgress(2, "").Percent)
	assert.Equal(t, 75, ComputeProgress(3, domain.PathEmotional).Percent)
	assert.Equal(t, 100, ComputeProgress(8, domain.PathReal).Percent)
	assert.Equal(t, 125, ComputeProgress(5, domain.PathEmotional).Percent)
}

func TestPageAt(t *testing.T) {
	assert.Equal(t, PageCheckIn, PageAt(1, ""))
	assert.Equal(t, PageCaptureThoughts, PageAt(2, ""))
	assert.Equal(t, PageComplete, PageAt(3, ""))
	assert.Equal(t, PageCheckIn, PageAt(0, domain.PathReal))

	assert.Equal(t, PagePlanOfAction, PageAt(6, domain.PathReal))
	assert.Equal(t, PageReevaluate, PageAt(7, domain.PathReal))
	assert.Equal(t, PageTransformThought, PageAt(6, domain.PathNotReal))
	assert.Equal(t, PageHabit, PageAt(7, domain.PathNotReal))
	assert.Equal(t, PageEmotionalContext, PageAt(4, domain.PathEmotional))
	assert.Equal(t, PageComplete, PageAt(5, domain.PathEmotional))
	assert.Equal(t, PageComplete, PageAt(20, domain.PathNotReal))
}
