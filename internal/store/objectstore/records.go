package objectstore

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/pbaille/mindatlas/internal/domain"
)

// JourneyRecord mirrors the journeys table of the relational backend.
// IsDraft stays an integer so it can lead the draft and history indexes.
// Timestamps are unix milliseconds and are never stamped by gorm.
type JourneyRecord struct {
	ID            string  `gorm:"column:id;primaryKey"`
	CreatedAt     int64   `gorm:"column:created_at;not null;index;autoCreateTime:false"`
	UpdatedAt     int64   `gorm:"column:updated_at;not null;index:idx_journeys_draft,priority:2;autoUpdateTime:false"`
	CompletedAt   *int64  `gorm:"column:completed_at;index:idx_journeys_completed,priority:2"`
	IsDraft       int     `gorm:"column:is_draft;not null;index:idx_journeys_draft,priority:1;index:idx_journeys_completed,priority:1"`
	CurrentStep   int     `gorm:"column:current_step;not null"`
	PathType      *string `gorm:"column:path_type;index"`
	Sentiment     *string `gorm:"column:sentiment"`
	ThoughtText   *string `gorm:"column:thought_text"`
	SituationText *string `gorm:"column:situation_text"`
	Notes         *string `gorm:"column:notes"`
}

func (JourneyRecord) TableName() string { return "journeys" }

type EmotionRecord struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	JourneyID      string `gorm:"column:journey_id;not null;index"`
	EmotionType    string `gorm:"column:emotion_type;not null"`
	Intensity      int    `gorm:"column:intensity"`
	CapturedAtStep int    `gorm:"column:captured_at_step;not null"`
}

func (EmotionRecord) TableName() string { return "journey_emotions" }

type ActionItemRecord struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	JourneyID   string `gorm:"column:journey_id;not null;index"`
	ActionText  string `gorm:"column:action_text;not null"`
	IsCompleted bool   `gorm:"column:is_completed;not null"`
	CreatedAt   int64  `gorm:"column:created_at;not null;autoCreateTime:false"`
	CompletedAt *int64 `gorm:"column:completed_at"`
	TargetDate  *int64 `gorm:"column:target_date"`
}

func (ActionItemRecord) TableName() string { return "journey_action_items" }

type TransformationRecord struct {
	ID                 int64   `gorm:"column:id;primaryKey;autoIncrement"`
	JourneyID          string  `gorm:"column:journey_id;not null;index"`
	OriginalThought    string  `gorm:"column:original_thought;not null"`
	TransformedThought string  `gorm:"column:transformed_thought;not null"`
	TransformationType *string `gorm:"column:transformation_type"`
}

func (TransformationRecord) TableName() string { return "journey_transformations" }

type HabitRecord struct {
	ID               int64   `gorm:"column:id;primaryKey;autoIncrement"`
	JourneyID        string  `gorm:"column:journey_id;not null;index"`
	HabitDescription string  `gorm:"column:habit_description;not null"`
	ReminderEnabled  bool    `gorm:"column:reminder_enabled;not null"`
	ReminderTime     *string `gorm:"column:reminder_time"`
	Frequency        *string `gorm:"column:frequency"`
}

func (HabitRecord) TableName() string { return "journey_habits" }

type ReevaluationRecord struct {
	ID                      int64   `gorm:"column:id;primaryKey;autoIncrement"`
	JourneyID               string  `gorm:"column:journey_id;not null;index"`
	OriginalBeliefRating    int     `gorm:"column:original_belief_rating"`
	ReevaluatedBeliefRating int     `gorm:"column:reevaluated_belief_rating"`
	Insights                *string `gorm:"column:insights"`
}

func (ReevaluationRecord) TableName() string { return "journey_reevaluations" }

// CheckInRecord keeps concerns as a JSON document
type CheckInRecord struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp int64          `gorm:"column:timestamp;not null;index"`
	Concerns  datatypes.JSON `gorm:"column:concerns;not null"`
	OtherText *string        `gorm:"column:other_text"`
	Source    string         `gorm:"column:source;not null"`
}

func (CheckInRecord) TableName() string { return "analytics_checkins" }

// childModels are the collections cascaded manually on journey delete
var childModels = []any{
	&EmotionRecord{},
	&ActionItemRecord{},
	&TransformationRecord{},
	&HabitRecord{},
	&ReevaluationRecord{},
}

func allModels() []any {
	return append([]any{&JourneyRecord{}, &CheckInRecord{}}, childModels...)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timeFromPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := domain.FromMillis(*ms)
	return &t
}

func toJourneyRecord(j *domain.Journey) JourneyRecord {
	rec := JourneyRecord{
		ID:            j.ID,
		CreatedAt:     j.CreatedAt.UnixMilli(),
		UpdatedAt:     j.UpdatedAt.UnixMilli(),
		CompletedAt:   millisPtr(j.CompletedAt),
		CurrentStep:   j.CurrentStep,
		PathType:      strPtr(string(j.PathType)),
		Sentiment:     strPtr(string(j.Sentiment)),
		ThoughtText:   strPtr(j.ThoughtText),
		SituationText: strPtr(j.SituationText),
		Notes:         strPtr(j.Notes),
	}
	if j.IsDraft {
		rec.IsDraft = 1
	}
	return rec
}

func (r JourneyRecord) toDomain() domain.Journey {
	return domain.Journey{
		ID:            r.ID,
		CreatedAt:     domain.FromMillis(r.CreatedAt),
		UpdatedAt:     domain.FromMillis(r.UpdatedAt),
		CompletedAt:   timeFromPtr(r.CompletedAt),
		IsDraft:       r.IsDraft == 1,
		CurrentStep:   r.CurrentStep,
		PathType:      domain.PathType(deref(r.PathType)),
		Sentiment:     domain.Sentiment(deref(r.Sentiment)),
		ThoughtText:   deref(r.ThoughtText),
		SituationText: deref(r.SituationText),
		Notes:         deref(r.Notes),
		Emotions:      []domain.Emotion{},
	}
}

func (r EmotionRecord) toDomain() domain.Emotion {
	return domain.Emotion{
		ID:             r.ID,
		JourneyID:      r.JourneyID,
		Type:           r.EmotionType,
		Intensity:      r.Intensity,
		CapturedAtStep: r.CapturedAtStep,
	}
}

func (r ActionItemRecord) toDomain() domain.ActionItem {
	return domain.ActionItem{
		ID:          r.ID,
		JourneyID:   r.JourneyID,
		Text:        r.ActionText,
		IsCompleted: r.IsCompleted,
		CreatedAt:   domain.FromMillis(r.CreatedAt),
		CompletedAt: timeFromPtr(r.CompletedAt),
		TargetDate:  timeFromPtr(r.TargetDate),
	}
}

func (r TransformationRecord) toDomain() *domain.Transformation {
	return &domain.Transformation{
		ID:                 r.ID,
		JourneyID:          r.JourneyID,
		OriginalThought:    r.OriginalThought,
		TransformedThought: r.TransformedThought,
		TransformationType: deref(r.TransformationType),
	}
}

func (r HabitRecord) toDomain() *domain.Habit {
	return &domain.Habit{
		ID:              r.ID,
		JourneyID:       r.JourneyID,
		Description:     r.HabitDescription,
		ReminderEnabled: r.ReminderEnabled,
		ReminderTime:    deref(r.ReminderTime),
		Frequency:       domain.HabitFrequency(deref(r.Frequency)),
	}
}

func (r ReevaluationRecord) toDomain() *domain.Reevaluation {
	return &domain.Reevaluation{
		ID:                      r.ID,
		JourneyID:               r.JourneyID,
		OriginalBeliefRating:    r.OriginalBeliefRating,
		ReevaluatedBeliefRating: r.ReevaluatedBeliefRating,
		Insights:                deref(r.Insights),
	}
}

func toCheckInRecord(c domain.CheckIn) (CheckInRecord, error) {
	concerns := c.Concerns
	if concerns == nil {
		concerns = []string{}
	}
	raw, err := json.Marshal(concerns)
	if err != nil {
		return CheckInRecord{}, fmt.Errorf("encode concerns: %w", err)
	}
	ts := c.Timestamp
	if ts.IsZero() {
		ts = domain.Now()
	}
	return CheckInRecord{
		Timestamp: ts.UnixMilli(),
		Concerns:  datatypes.JSON(raw),
		OtherText: strPtr(c.OtherText),
		Source:    c.Source,
	}, nil
}

func (r CheckInRecord) toDomain() (domain.CheckIn, error) {
	c := domain.CheckIn{
		ID:        r.ID,
		Timestamp: domain.FromMillis(r.Timestamp),
		OtherText: deref(r.OtherText),
		Source:    r.Source,
	}
	if err := json.Unmarshal(r.Concerns, &c.Concerns); err != nil {
		return c, fmt.Errorf("decode concerns of check-in %d: %w", r.ID, err)
	}
	return c, nil
}
