package journey

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pbaille/mindatlas/internal/domain"
)

// EncodeSnapshot serializes the whole journey, children included
func EncodeSnapshot(j *domain.Journey) (string, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(raw), nil
}

// DecodeSnapshot parses a snapshot written by EncodeSnapshot. A recovered
// journey is always a draft on step 1 or later.
func DecodeSnapshot(raw string) (*domain.Journey, error) {
	var j domain.Journey
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if j.ID == "" {
		return nil, errors.New("decode snapshot: missing journey id")
	}
	if j.PathType != "" && !j.PathType.Valid() {
		return nil, fmt.Errorf("decode snapshot: unknown path type %q", j.PathType)
	}
	j.IsDraft = true
	j.CompletedAt = nil
	if j.CurrentStep < 1 {
		j.CurrentStep = 1
	}
	if j.Emotions == nil {
		j.Emotions = []domain.Emotion{}
	}
	return &j, nil
}
