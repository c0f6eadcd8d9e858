package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/mindatlas/internal/domain"
)

func TestSnapshotKeepsChildren(t *testing.T) {
	target := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	j := &domain.Journey{
		ID:            "j1",
		CreatedAt:     time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2025, 6, 1, 8, 5, 0, 0, time.UTC),
		IsDraft:       true,
		CurrentStep:   7,
		PathType:      domain.PathReal,
		ThoughtOrigin: domain.OriginSchool,
		Emotions:      []domain.Emotion{{Type: "nervous", Intensity: 2, CapturedAtStep: 3}},
		ActionItems:   []domain.ActionItem{{Text: "ask for help", TargetDate: &target}},
		Reevaluation:  &domain.Reevaluation{OriginalBeliefRating: 5, ReevaluatedBeliefRating: 7},
	}

	raw, err := EncodeSnapshot(j)
	require.NoError(t, err)
	assert.Contains(t, raw, `"action_items"`)
	assert.Contains(t, raw, `"thought_origin":"SCHOOL"`)

	got, err := DecodeSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, j, got)
}

func TestDecodeSnapshotNormalizes(t *testing.T) {
	got, err := DecodeSnapshot(`{"id":"j1","current_step":0,"is_draft":false,"completed_at":"2025-01-01T00:00:00Z"}`)
	require.NoError(t, err)
	assert.True(t, got.IsDraft)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, 1, got.CurrentStep)
	assert.NotNil(t, got.Emotions)

	_, err = DecodeSnapshot(`{"current_step":2}`)
	assert.Error(t, err)
	_, err = DecodeSnapshot(`{"id":"j1","path_type":"MAYBE"}`)
	assert.Error(t, err)
	_, err = DecodeSnapshot(`[]`)
	assert.Error(t, err)
}
