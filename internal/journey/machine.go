// Package journey drives one thought journey at a time through the wizard.
// The in-progress journey lives in memory; every step transition writes a
// recoverable snapshot to the preference store, and completion hands the
// journey to the repository.
package journey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/logger"
	"github.com/pbaille/mindatlas/internal/prefs"
)

// Minimum free-text lengths the wizard asks for. The machine itself
// accepts anything; callers collecting input enforce these.
const (
	MinSituationLength          = 20
	MinTransformedThoughtLength = 10
)

// Machine owns the current journey. It is driven by a single caller and is
// not safe for concurrent use.
type Machine struct {
	repo  domain.JourneyRepository
	prefs prefs.Store
	log   *logger.Logger

	now   func() time.Time
	newID func() string

	current *domain.Journey
}

type Option func(*Machine)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator replaces the journey id generator
func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) { m.newID = newID }
}

func New(repo domain.JourneyRepository, store prefs.Store, log *logger.Logger, opts ...Option) *Machine {
	if log == nil {
		log = logger.Nop()
	}
	m := &Machine{
		repo:  repo,
		prefs: store,
		log:   log.With("component", "journey"),
		now:   domain.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a new journey at step 1 and returns its id. Any journey
// already in memory is dropped.
func (m *Machine) Start() string {
	now := m.now()
	m.current = &domain.Journey{
		ID:          m.newID(),
		CreatedAt:   now,
		UpdatedAt:   now,
		IsDraft:     true,
		CurrentStep: 1,
		Emotions:    []domain.Emotion{},
	}
	m.log.Info("journey started", "journey_id", m.current.ID)
	return m.current.ID
}

// Patch lists the fields Update changes. Nil fields are left alone; a
// pointer to the empty string clears a text field.
type Patch struct {
	PathType      *domain.PathType
	Sentiment     *domain.Sentiment
	ThoughtText   *string
	ThoughtOrigin *domain.ThoughtOrigin
	SituationText *string
	Notes         *string

	// non-nil slices replace the whole collection
	Emotions    []domain.Emotion
	ActionItems []domain.ActionItem

	Transformation *domain.Transformation
	Habit          *domain.Habit
	Reevaluation   *domain.Reevaluation
}

// Ptr returns a pointer to v, for building patches
func Ptr[T any](v T) *T {
	return &v
}

// Update merges p into the current journey and bumps UpdatedAt. Nothing is
// written to storage.
func (m *Machine) Update(p Patch) error {
	if m.current == nil {
		m.log.Warn("update without an active journey")
		return domain.ErrNoActiveJourney
	}
	j := m.current

	if p.PathType != nil {
		if !p.PathType.Valid() {
			return fmt.Errorf("unknown path type %q", *p.PathType)
		}
		if j.PathType != "" && j.PathType != *p.PathType {
			return fmt.Errorf("change %s to %s: %w", j.PathType, *p.PathType, domain.ErrPathTypeLocked)
		}
	}
	if p.Sentiment != nil && *p.Sentiment != "" && !p.Sentiment.Valid() {
		return fmt.Errorf("unknown sentiment %q", *p.Sentiment)
	}

	if p.PathType != nil {
		j.PathType = *p.PathType
	}
	if p.Sentiment != nil {
		j.Sentiment = *p.Sentiment
	}
	if p.ThoughtText != nil {
		j.ThoughtText = *p.ThoughtText
	}
	if p.ThoughtOrigin != nil {
		j.ThoughtOrigin = *p.ThoughtOrigin
	}
	if p.SituationText != nil {
		j.SituationText = *p.SituationText
	}
	if p.Notes != nil {
		j.Notes = *p.Notes
	}
	if p.Emotions != nil {
		j.Emotions = make([]domain.Emotion, len(p.Emotions))
		copy(j.Emotions, p.Emotions)
	}
	if p.ActionItems != nil {
		j.ActionItems = make([]domain.ActionItem, len(p.ActionItems))
		for i, a := range p.ActionItems {
			j.ActionItems[i] = a.Clone()
		}
	}
	if p.Transformation != nil {
		t := *p.Transformation
		j.Transformation = &t
	}
	if p.Habit != nil {
		h := *p.Habit
		j.Habit = &h
	}
	if p.Reevaluation != nil {
		r := *p.Reevaluation
		j.Reevaluation = &r
	}

	j.UpdatedAt = m.now()
	return nil
}

// SetPathType chooses the branch. It can only be set once.
func (m *Machine) SetPathType(p domain.PathType) error {
	return m.Update(Patch{PathType: &p})
}

// Advance moves to the next step and writes the snapshot. There is no
// upper bound; the caller routes to completion after the last page.
func (m *Machine) Advance(ctx context.Context) error {
	if m.current == nil {
		return domain.ErrNoActiveJourney
	}
	m.current.CurrentStep++
	m.current.UpdatedAt = m.now()
	m.log.Debug("step advanced", "journey_id", m.current.ID, "step", m.current.CurrentStep)
	return m.writeSnapshot(ctx)
}

// Retreat moves back one step and writes the snapshot. At step 1 it does
// nothing.
func (m *Machine) Retreat(ctx context.Context) error {
	if m.current == nil {
		return domain.ErrNoActiveJourney
	}
	if m.current.CurrentStep <= 1 {
		return nil
	}
	m.current.CurrentStep--
	m.current.UpdatedAt = m.now()
	m.log.Debug("step retreated", "journey_id", m.current.ID, "step", m.current.CurrentStep)
	return m.writeSnapshot(ctx)
}

func (m *Machine) writeSnapshot(ctx context.Context) error {
	raw, err := EncodeSnapshot(m.current)
	if err != nil {
		return err
	}
	if err := m.prefs.Set(ctx, prefs.DraftKey, raw); err != nil {
		m.log.Error("save snapshot failed", "journey_id", m.current.ID, "error", err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Complete finalizes the journey and saves it with all of its records. On
// success the snapshot and the in-memory journey are cleared and the saved
// journey is returned. On failure the in-memory journey is untouched so the
// caller can retry.
func (m *Machine) Complete(ctx context.Context) (*domain.Journey, error) {
	if m.current == nil {
		return nil, domain.ErrNoActiveJourney
	}

	final := m.current.Clone()
	now := m.now()
	final.IsDraft = false
	final.CompletedAt = &now
	final.UpdatedAt = now

	if err := m.repo.SaveCompleted(ctx, final); err != nil {
		m.log.Error("complete journey failed", "journey_id", final.ID, "error", err)
		return nil, fmt.Errorf("complete journey: %w", err)
	}

	if err := m.prefs.Remove(ctx, prefs.DraftKey); err != nil {
		m.log.Warn("clear snapshot failed", "journey_id", final.ID, "error", err)
	}
	m.current = nil
	m.log.Info("journey completed", "journey_id", final.ID, "path_type", final.PathType)
	return final, nil
}

// Cancel drops the snapshot and the in-memory journey. It never fails; a
// snapshot that cannot be removed is logged.
func (m *Machine) Cancel(ctx context.Context) {
	if err := m.prefs.Remove(ctx, prefs.DraftKey); err != nil {
		m.log.Warn("clear snapshot failed", "error", err)
	}
	if m.current != nil {
		m.log.Info("journey cancelled", "journey_id", m.current.ID)
	}
	m.current = nil
}

// LoadRecoverable restores the snapshot left by an earlier run. It reports
// false when there is none. A snapshot that cannot be decoded is logged
// and treated as absent.
func (m *Machine) LoadRecoverable(ctx context.Context) (bool, error) {
	raw, ok, err := m.prefs.Get(ctx, prefs.DraftKey)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}

	j, err := DecodeSnapshot(raw)
	if err != nil {
		m.log.Warn("ignoring unreadable snapshot", "error", err)
		return false, nil
	}
	m.current = j
	m.log.Info("journey recovered", "journey_id", j.ID, "step", j.CurrentStep)
	return true, nil
}

// SaveDraft writes the current journey to the repository as a draft, so it
// shows up in the draft list.
func (m *Machine) SaveDraft(ctx context.Context) error {
	if m.current == nil {
		return domain.ErrNoActiveJourney
	}
	draft := m.current.Clone()
	if err := m.repo.SaveDraft(ctx, draft); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	m.current.UpdatedAt = draft.UpdatedAt
	return nil
}

// ResumeDraft makes a stored draft the current journey and writes it as
// the recoverable snapshot.
func (m *Machine) ResumeDraft(ctx context.Context, draft domain.Journey) error {
	j := draft.Clone()
	j.IsDraft = true
	j.CompletedAt = nil
	if j.CurrentStep < 1 {
		j.CurrentStep = 1
	}
	if j.Emotions == nil {
		j.Emotions = []domain.Emotion{}
	}
	m.current = j
	m.log.Info("draft resumed", "journey_id", j.ID, "step", j.CurrentStep)
	return m.writeSnapshot(ctx)
}

// Current returns a copy of the journey in progress, or nil
func (m *Machine) Current() *domain.Journey {
	return m.current.Clone()
}

func (m *Machine) Active() bool {
	return m.current != nil
}

// Progress reports where the current journey stands. ok is false when no
// journey is active.
func (m *Machine) Progress() (p Progress, ok bool) {
	if m.current == nil {
		return Progress{}, false
	}
	return ComputeProgress(m.current.CurrentStep, m.current.PathType), true
}
