package objectstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/pbaille/mindatlas/internal/domain"
)

// SaveDraft puts the journey as a draft. Completed journeys are left alone.
func (s *Store) SaveDraft(ctx context.Context, j *domain.Journey) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := j.ValidateRow(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}

	now := domain.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		rec := toJourneyRecord(j)
		rec.UpdatedAt = now.UnixMilli()
		rec.CompletedAt = nil
		rec.IsDraft = 1

		existing, err := findJourney(tx, j.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsDraft == 0 {
				return fmt.Errorf("save draft %s: %w", j.ID, domain.ErrAlreadyCompleted)
			}
			rec.CreatedAt = existing.CreatedAt
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			return err
		}
		return fmt.Errorf("save draft: %w", err)
	}

	j.UpdatedAt = now
	j.IsDraft = true
	return nil
}

// GetDrafts returns all drafts, most recently updated first
func (s *Store) GetDrafts(ctx context.Context) ([]domain.Journey, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var recs []JourneyRecord
	if err := db.Where("is_draft = ?", 1).Order("updated_at DESC, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get drafts: %w", err)
	}
	drafts := make([]domain.Journey, 0, len(recs))
	for _, r := range recs {
		drafts = append(drafts, r.toDomain())
	}
	return drafts, nil
}

func (s *Store) GetLatestDraft(ctx context.Context) (*domain.Journey, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var recs []JourneyRecord
	if err := db.Where("is_draft = ?", 1).Order("updated_at DESC, id").Limit(1).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get latest draft: %w", err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrNotFound
	}
	j := recs[0].toDomain()
	return &j, nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := db.Where("id = ? AND is_draft = ?", id, 1).Delete(&JourneyRecord{}).Error; err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// SaveCompleted writes the journey and its children in one transaction
// spanning every collection. Children already stored for the journey are
// replaced.
func (s *Store) SaveCompleted(ctx context.Context, j *domain.Journey) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := j.Validate(); err != nil {
		return fmt.Errorf("save completed: %w", err)
	}

	now := domain.Now()
	completedAt := now
	if j.CompletedAt != nil {
		completedAt = j.CompletedAt.UTC().Truncate(time.Millisecond)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		rec := toJourneyRecord(j)
		rec.IsDraft = 0
		rec.UpdatedAt = now.UnixMilli()
		ms := completedAt.UnixMilli()
		rec.CompletedAt = &ms

		existing, err := findJourney(tx, j.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			rec.CreatedAt = existing.CreatedAt
		}
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("put journey: %w", err)
		}

		if err := deleteChildren(tx, j.ID); err != nil {
			return err
		}
		return createChildren(tx, j, now.UnixMilli())
	})
	if err != nil {
		return fmt.Errorf("save completed: %w", err)
	}

	j.IsDraft = false
	j.UpdatedAt = now
	j.CompletedAt = &completedAt
	return nil
}

func createChildren(tx *gorm.DB, j *domain.Journey, now int64) error {
	if len(j.Emotions) > 0 {
		recs := make([]EmotionRecord, 0, len(j.Emotions))
		for _, e := range j.Emotions {
			recs = append(recs, EmotionRecord{
				JourneyID:      j.ID,
				EmotionType:    e.Type,
				Intensity:      e.Intensity,
				CapturedAtStep: e.CapturedAtStep,
			})
		}
		if err := tx.Create(&recs).Error; err != nil {
			return fmt.Errorf("add emotions: %w", err)
		}
	}

	if len(j.ActionItems) > 0 {
		recs := make([]ActionItemRecord, 0, len(j.ActionItems))
		for _, a := range j.ActionItems {
			created := now
			if !a.CreatedAt.IsZero() {
				created = a.CreatedAt.UnixMilli()
			}
			recs = append(recs, ActionItemRecord{
				JourneyID:   j.ID,
				ActionText:  a.Text,
				IsCompleted: a.IsCompleted,
				CreatedAt:   created,
				CompletedAt: millisPtr(a.CompletedAt),
				TargetDate:  millisPtr(a.TargetDate),
			})
		}
		if err := tx.Create(&recs).Error; err != nil {
			return fmt.Errorf("add action items: %w", err)
		}
	}

	if t := j.Transformation; t != nil {
		rec := TransformationRecord{
			JourneyID:          j.ID,
			OriginalThought:    t.OriginalThought,
			TransformedThought: t.TransformedThought,
			TransformationType: strPtr(t.TransformationType),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("add transformation: %w", err)
		}
	}

	if h := j.Habit; h != nil {
		rec := HabitRecord{
			JourneyID:        j.ID,
			HabitDescription: h.Description,
			ReminderEnabled:  h.ReminderEnabled,
			ReminderTime:     strPtr(h.ReminderTime),
			Frequency:        strPtr(string(h.Frequency)),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("add habit: %w", err)
		}
	}

	if r := j.Reevaluation; r != nil {
		rec := ReevaluationRecord{
			JourneyID:               j.ID,
			OriginalBeliefRating:    r.OriginalBeliefRating,
			ReevaluatedBeliefRating: r.ReevaluatedBeliefRating,
			Insights:                strPtr(r.Insights),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("add reevaluation: %w", err)
		}
	}
	return nil
}

// GetCompletedJourneys loads the completed index, filters, sorts by
// completed_at descending, and only then slices out the page.
func (s *Store) GetCompletedJourneys(ctx context.Context, limit, offset int, f domain.Filters) ([]domain.Journey, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var recs []JourneyRecord
	if err := db.Where("is_draft = ?", 0).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get completed journeys: %w", err)
	}

	matched := make([]domain.Journey, 0, len(recs))
	for _, r := range recs {
		j := r.toDomain()
		if f.EmotionType != "" {
			if j.Emotions, err = loadEmotions(db, j.ID); err != nil {
				return nil, err
			}
		}
		if f.Match(&j) {
			matched = append(matched, j)
		}
	}

	sort.SliceStable(matched, func(a, b int) bool {
		ta, tb := completedMillis(&matched[a]), completedMillis(&matched[b])
		if ta != tb {
			return ta > tb
		}
		return matched[a].ID < matched[b].ID
	})

	if offset >= len(matched) {
		return []domain.Journey{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[offset:end]

	for i := range page {
		if err := loadChildren(db, &page[i]); err != nil {
			return nil, err
		}
	}
	return page, nil
}

func completedMillis(j *domain.Journey) int64 {
	if j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.UnixMilli()
}

// GetJourneyByID returns a completed journey with its children
func (s *Store) GetJourneyByID(ctx context.Context, id string) (*domain.Journey, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := findJourney(db, id)
	if err != nil {
		return nil, fmt.Errorf("get journey: %w", err)
	}
	if rec == nil || rec.IsDraft == 1 {
		return nil, domain.ErrNotFound
	}
	j := rec.toDomain()
	if err := loadChildren(db, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// DeleteJourney removes the journey and walks every child collection
func (s *Store) DeleteJourney(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&JourneyRecord{}).Error; err != nil {
			return err
		}
		return deleteChildren(tx, id)
	})
	if err != nil {
		return fmt.Errorf("delete journey: %w", err)
	}
	return nil
}

// DeleteAllJourneys removes every completed journey and its children.
// Drafts are kept.
func (s *Store) DeleteAllJourneys(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&JourneyRecord{}).Where("is_draft = ?", 0).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		for _, m := range childModels {
			if err := tx.Where("journey_id IN ?", ids).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("is_draft = ?", 0).Delete(&JourneyRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete all journeys: %w", err)
	}
	s.log.Info("all completed journeys deleted")
	return nil
}

func findJourney(db *gorm.DB, id string) (*JourneyRecord, error) {
	var recs []JourneyRecord
	if err := db.Where("id = ?", id).Limit(1).Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func deleteChildren(tx *gorm.DB, journeyID string) error {
	for _, m := range childModels {
		if err := tx.Where("journey_id = ?", journeyID).Delete(m).Error; err != nil {
			return fmt.Errorf("clear children: %w", err)
		}
	}
	return nil
}

// loadChildren attaches emotions, plus the records that belong to the
// journey's path.
func loadChildren(db *gorm.DB, j *domain.Journey) error {
	var err error
	if j.Emotions, err = loadEmotions(db, j.ID); err != nil {
		return err
	}

	switch j.PathType {
	case domain.PathReal:
		var items []ActionItemRecord
		if err := db.Where("journey_id = ?", j.ID).Order("id").Find(&items).Error; err != nil {
			return fmt.Errorf("get action items: %w", err)
		}
		j.ActionItems = make([]domain.ActionItem, 0, len(items))
		for _, a := range items {
			j.ActionItems = append(j.ActionItems, a.toDomain())
		}

		var reevals []ReevaluationRecord
		if err := db.Where("journey_id = ?", j.ID).Order("id").Limit(1).Find(&reevals).Error; err != nil {
			return fmt.Errorf("get reevaluation: %w", err)
		}
		if len(reevals) > 0 {
			j.Reevaluation = reevals[0].toDomain()
		}

	case domain.PathNotReal:
		var transformations []TransformationRecord
		if err := db.Where("journey_id = ?", j.ID).Order("id").Limit(1).Find(&transformations).Error; err != nil {
			return fmt.Errorf("get transformation: %w", err)
		}
		if len(transformations) > 0 {
			j.Transformation = transformations[0].toDomain()
		}

		var habits []HabitRecord
		if err := db.Where("journey_id = ?", j.ID).Order("id").Limit(1).Find(&habits).Error; err != nil {
			return fmt.Errorf("get habit: %w", err)
		}
		if len(habits) > 0 {
			j.Habit = habits[0].toDomain()
		}
	}
	return nil
}

func loadEmotions(db *gorm.DB, journeyID string) ([]domain.Emotion, error) {
	var recs []EmotionRecord
	if err := db.Where("journey_id = ?", journeyID).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get emotions: %w", err)
	}
	emotions := make([]domain.Emotion, 0, len(recs))
	for _, r := range recs {
		emotions = append(emotions, r.toDomain())
	}
	return emotions, nil
}
