package domain

import (
	"fmt"
	"time"
)

// PathType is the wizard branch chosen after capturing the thought
type PathType string

const (
	PathReal      PathType = "REAL"
	PathNotReal   PathType = "NOT_REAL"
	PathEmotional PathType = "EMOTIONAL"
)

// Valid reports whether p is one of the known branches. The empty value
// (path not chosen yet) is not valid.
func (p PathType) Valid() bool {
	switch p {
	case PathReal, PathNotReal, PathEmotional:
		return true
	}
	return false
}

// Sentiment summarizes the concerns selected at check-in
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return true
	}
	return false
}

// ThoughtOrigin records whose voice the thought is in
type ThoughtOrigin string

const (
	OriginMe            ThoughtOrigin = "ME"
	OriginParent        ThoughtOrigin = "PARENT"
	OriginFamily        ThoughtOrigin = "FAMILY"
	OriginSchool        ThoughtOrigin = "SCHOOL"
	OriginAuthority     ThoughtOrigin = "AUTHORITY"
	OriginRelationships ThoughtOrigin = "RELATIONSHIPS"
	OriginOther         ThoughtOrigin = "OTHER"
)

// HabitFrequency is how often a habit is practiced
type HabitFrequency string

const (
	FrequencyDaily  HabitFrequency = "DAILY"
	FrequencyWeekly HabitFrequency = "WEEKLY"
	FrequencyCustom HabitFrequency = "CUSTOM"
)

func (f HabitFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}

// Journey is one pass through the thought wizard, draft or completed.
// Empty strings mean the field was never filled in.
type Journey struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsDraft     bool       `json:"is_draft"`
	CurrentStep int        `json:"current_step"`

	PathType      PathType      `json:"path_type,omitempty"`
	Sentiment     Sentiment     `json:"sentiment,omitempty"`
	ThoughtText   string        `json:"thought_text,omitempty"`
	ThoughtOrigin ThoughtOrigin `json:"thought_origin,omitempty"`
	SituationText string        `json:"situation_text,omitempty"`
	Notes         string        `json:"notes,omitempty"`

	Emotions []Emotion `json:"emotions"`

	// REAL path
	ActionItems  []ActionItem  `json:"action_items,omitempty"`
	Reevaluation *Reevaluation `json:"reevaluation,omitempty"`

	// NOT_REAL path
	Transformation *Transformation `json:"transformation,omitempty"`
	Habit          *Habit          `json:"habit,omitempty"`
}

// Completed reports whether the journey has been finalized
func (j *Journey) Completed() bool {
	return !j.IsDraft && j.CompletedAt != nil
}

// ValidateRow checks the values stored on the journey row itself. An empty
// path or sentiment means not chosen yet and is accepted.
func (j *Journey) ValidateRow() error {
	if j.PathType != "" && !j.PathType.Valid() {
		return fmt.Errorf("%w: path type %q", ErrInvalidJourney, j.PathType)
	}
	if j.Sentiment != "" && !j.Sentiment.Valid() {
		return fmt.Errorf("%w: sentiment %q", ErrInvalidJourney, j.Sentiment)
	}
	return nil
}

// Validate checks the row and every child record against the ranges the
// stores accept.
func (j *Journey) Validate() error {
	if err := j.ValidateRow(); err != nil {
		return err
	}
	for _, e := range j.Emotions {
		if e.Intensity < MinIntensity || e.Intensity > MaxIntensity {
			return fmt.Errorf("%w: emotion %q intensity %d not in %d-%d",
				ErrInvalidJourney, e.Type, e.Intensity, MinIntensity, MaxIntensity)
		}
	}
	if h := j.Habit; h != nil && h.Frequency != "" && !h.Frequency.Valid() {
		return fmt.Errorf("%w: habit frequency %q", ErrInvalidJourney, h.Frequency)
	}
	if r := j.Reevaluation; r != nil {
		for _, rating := range []int{r.OriginalBeliefRating, r.ReevaluatedBeliefRating} {
			if rating < MinBeliefRating || rating > MaxBeliefRating {
				return fmt.Errorf("%w: belief rating %d not in %d-%d",
					ErrInvalidJourney, rating, MinBeliefRating, MaxBeliefRating)
			}
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate shared state
func (j *Journey) Clone() *Journey {
	if j == nil {
		return nil
	}
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Emotions != nil {
		c.Emotions = make([]Emotion, len(j.Emotions))
		copy(c.Emotions, j.Emotions)
	}
	if j.ActionItems != nil {
		c.ActionItems = make([]ActionItem, len(j.ActionItems))
		for i, a := range j.ActionItems {
			c.ActionItems[i] = a.Clone()
		}
	}
	if j.Reevaluation != nil {
		r := *j.Reevaluation
		c.Reevaluation = &r
	}
	if j.Transformation != nil {
		t := *j.Transformation
		c.Transformation = &t
	}
	if j.Habit != nil {
		h := *j.Habit
		c.Habit = &h
	}
	return &c
}

// Ranges shared by every store
const (
	MinIntensity    = 1
	MaxIntensity    = 5
	MinBeliefRating = 0
	MaxBeliefRating = 10
)

// Emotion is a feeling captured at a given step
type Emotion struct {
	ID             int64  `json:"id,omitempty"`
	JourneyID      string `json:"journey_id"`
	Type           string `json:"emotion_type"`
	Intensity      int    `json:"intensity"`
	CapturedAtStep int    `json:"captured_at_step"`
}

// ActionItem is a concrete step planned on the REAL path
type ActionItem struct {
	ID          int64      `json:"id,omitempty"`
	JourneyID   string     `json:"journey_id"`
	Text        string     `json:"action_text"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone copies the item including its optional dates
func (a ActionItem) Clone() ActionItem {
	if a.TargetDate != nil {
		t := *a.TargetDate
		a.TargetDate = &t
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	return a
}

// Transformation rewrites an unhelpful thought on the NOT_REAL path
type Transformation struct {
	ID                 int64  `json:"id,omitempty"`
	JourneyID          string `json:"journey_id"`
	OriginalThought    string `json:"original_thought"`
	TransformedThought string `json:"transformed_thought"`
	TransformationType string `json:"transformation_type,omitempty"`
}

// Habit is the practice adopted to reinforce a transformed thought
type Habit struct {
	ID              int64          `json:"id,omitempty"`
	JourneyID       string         `json:"journey_id"`
	Description     string         `json:"habit_description"`
	ReminderEnabled bool           `json:"reminder_enabled"`
	ReminderTime    string         `json:"reminder_time,omitempty"`
	Frequency       HabitFrequency `json:"frequency"`
}

// Reevaluation compares belief in the thought before and after the plan.
// Ratings use a 0-10 scale.
type Reevaluation struct {
	ID                      int64  `json:"id,omitempty"`
	JourneyID               string `json:"journey_id"`
	OriginalBeliefRating    int    `json:"original_belief_rating"`
	ReevaluatedBeliefRating int    `json:"reevaluated_belief_rating"`
	Insights                string `json:"insights,omitempty"`
}

// FeelsBetter reports whether belief in the thought moved in the hoped direction
func (r *Reevaluation) FeelsBetter() bool {
	return r.ReevaluatedBeliefRating > r.OriginalBeliefRating
}

// CheckIn is one entry of the analytics side-channel. It has no relation
// to any journey.
type CheckIn struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Concerns  []string  `json:"concerns"`
	OtherText string    `json:"other_text,omitempty"`
	Source    string    `json:"source"`
}

// Filters narrows the completed journey history
type Filters struct {
	StartDate   *time.Time
	EndDate     *time.Time
	PathType    PathType
	EmotionType string
}

// Match applies the filters to a completed journey. Journeys without a
// completion time sort and filter as the zero time.
func (f Filters) Match(j *Journey) bool {
	var completed time.Time
	if j.CompletedAt != nil {
		completed = *j.CompletedAt
	}
	if f.StartDate != nil && completed.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && completed.After(*f.EndDate) {
		return false
	}
	if f.PathType != "" && j.PathType != f.PathType {
		return false
	}
	if f.EmotionType != "" {
		found := false
		for _, e := range j.Emotions {
			if e.Type == f.EmotionType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Now returns the current time in the precision the stores persist
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FromMillis converts a stored unix millisecond timestamp
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
