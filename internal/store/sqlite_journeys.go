package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/mindatlas/internal/domain"
)

const journeyColumns = `id, created_at, updated_at, completed_at, is_draft, current_step,
	path_type, sentiment, thought_text, situation_text, notes`

// SaveDraft upserts the journey row as a draft. A completed journey is
// never turned back into a draft.
func (s *SQLiteStore) SaveDraft(ctx context.Context, j *domain.Journey) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if err := j.ValidateRow(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}

	now := domain.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO journeys (id, created_at, updated_at, completed_at, is_draft, current_step,
			path_type, sentiment, thought_text, situation_text, notes)
		VALUES (?, ?, ?, NULL, 1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			current_step = excluded.current_step,
			path_type = excluded.path_type,
			sentiment = excluded.sentiment,
			thought_text = excluded.thought_text,
			situation_text = excluded.situation_text,
			notes = excluded.notes
		WHERE journeys.is_draft = 1`,
		j.ID, j.CreatedAt.UnixMilli(), now.UnixMilli(), j.CurrentStep,
		nullString(string(j.PathType)), nullString(string(j.Sentiment)),
		nullString(j.ThoughtText), nullString(j.SituationText), nullString(j.Notes),
	)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save draft %s: %w", j.ID, domain.ErrAlreadyCompleted)
	}

	j.UpdatedAt = now
	j.IsDraft = true
	return nil
}

// GetDrafts returns all drafts, most recently updated first
func (s *SQLiteStore) GetDrafts(ctx context.Context) ([]domain.Journey, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	drafts, err := queryJourneys(ctx, db,
		"SELECT "+journeyColumns+" FROM journeys WHERE is_draft = 1 ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("get drafts: %w", err)
	}
	return drafts, nil
}

func (s *SQLiteStore) GetLatestDraft(ctx context.Context) (*domain.Journey, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	drafts, err := queryJourneys(ctx, db,
		"SELECT "+journeyColumns+" FROM journeys WHERE is_draft = 1 ORDER BY updated_at DESC, id LIMIT 1")
	if err != nil {
		return nil, fmt.Errorf("get latest draft: %w", err)
	}
	if len(drafts) == 0 {
		return nil, domain.ErrNotFound
	}
	return &drafts[0], nil
}

func (s *SQLiteStore) DeleteDraft(ctx context.Context, id string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM journeys WHERE id = ? AND is_draft = 1", id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// SaveCompleted writes the journey row and every child record in one
// transaction. Existing children of the same journey are replaced.
func (s *SQLiteStore) SaveCompleted(ctx context.Context, j *domain.Journey) (err error) {
	db, err := s.conn()
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

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save completed: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journeys (id, created_at, updated_at, completed_at, is_draft, current_step,
			path_type, sentiment, thought_text, situation_text, notes)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at,
			is_draft = 0,
			current_step = excluded.current_step,
			path_type = excluded.path_type,
			sentiment = excluded.sentiment,
			thought_text = excluded.thought_text,
			situation_text = excluded.situation_text,
			notes = excluded.notes`,
		j.ID, j.CreatedAt.UnixMilli(), now.UnixMilli(), completedAt.UnixMilli(), j.CurrentStep,
		nullString(string(j.PathType)), nullString(string(j.Sentiment)),
		nullString(j.ThoughtText), nullString(j.SituationText), nullString(j.Notes),
	)
	if err != nil {
		return fmt.Errorf("save completed: insert journey: %w", err)
	}

	if err = replaceChildren(ctx, tx, j, now); err != nil {
		return fmt.Errorf("save completed: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("save completed: commit: %w", err)
	}

	j.IsDraft = false
	j.UpdatedAt = now
	j.CompletedAt = &completedAt
	return nil
}

var childTables = []string{
	"journey_emotions",
	"journey_action_items",
	"journey_transformations",
	"journey_habits",
	"journey_reevaluations",
}

func replaceChildren(ctx context.Context, tx *sql.Tx, j *domain.Journey, now time.Time) error {
	for _, table := range childTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE journey_id = ?", j.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, e := range j.Emotions {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO journey_emotions (journey_id, emotion_type, intensity, captured_at_step) VALUES (?, ?, ?, ?)",
			j.ID, e.Type, e.Intensity, e.CapturedAtStep,
		)
		if err != nil {
			return fmt.Errorf("insert emotion: %w", err)
		}
	}

	for _, a := range j.ActionItems {
		created := now.UnixMilli()
		if !a.CreatedAt.IsZero() {
			created = a.CreatedAt.UnixMilli()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO journey_action_items (journey_id, action_text, is_completed, created_at, completed_at, target_date)
			VALUES (?, ?, ?, ?, ?, ?)`,
			j.ID, a.Text, boolInt(a.IsCompleted), created, nullMillis(a.CompletedAt), nullMillis(a.TargetDate),
		)
		if err != nil {
			return fmt.Errorf("insert action item: %w", err)
		}
	}

	if t := j.Transformation; t != nil {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO journey_transformations (journey_id, original_thought, transformed_thought, transformation_type)
			VALUES (?, ?, ?, ?)`,
			j.ID, t.OriginalThought, t.TransformedThought, nullString(t.TransformationType),
		)
		if err != nil {
			return fmt.Errorf("insert transformation: %w", err)
		}
	}

	if h := j.Habit; h != nil {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO journey_habits (journey_id, habit_description, reminder_enabled, reminder_time, frequency)
			VALUES (?, ?, ?, ?, ?)`,
			j.ID, h.Description, boolInt(h.ReminderEnabled), nullString(h.ReminderTime), nullString(string(h.Frequency)),
		)
		if err != nil {
			return fmt.Errorf("insert habit: %w", err)
		}
	}

	if r := j.Reevaluation; r != nil {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO journey_reevaluations (journey_id, original_belief_rating, reevaluated_belief_rating, insights)
			VALUES (?, ?, ?, ?)`,
			j.ID, r.OriginalBeliefRating, r.ReevaluatedBeliefRating, nullString(r.Insights),
		)
		if err != nil {
			return fmt.Errorf("insert reevaluation: %w", err)
		}
	}
	return nil
}

// GetCompletedJourneys filters in SQL so LIMIT/OFFSET page the filtered set
func (s *SQLiteStore) GetCompletedJourneys(ctx context.Context, limit, offset int, f domain.Filters) ([]domain.Journey, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	where := []string{"is_draft = 0"}
	var args []any
	if f.StartDate != nil {
		where = append(where, "completed_at >= ?")
		args = append(args, f.StartDate.UnixMilli())
	}
	if f.EndDate != nil {
		where = append(where, "completed_at <= ?")
		args = append(args, f.EndDate.UnixMilli())
	}
	if f.PathType != "" {
		where = append(where, "path_type = ?")
		args = append(args, string(f.PathType))
	}
	if f.EmotionType != "" {
		where = append(where,
			"EXISTS (SELECT 1 FROM journey_emotions e WHERE e.journey_id = journeys.id AND e.emotion_type = ?)")
		args = append(args, f.EmotionType)
	}
	args = append(args, limit, offset)

	query := "SELECT " + journeyColumns + " FROM journeys WHERE " + strings.Join(where, " AND ") +
		" ORDER BY completed_at DESC, id LIMIT ? OFFSET ?"

	journeys, err := queryJourneys(ctx, db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get completed journeys: %w", err)
	}
	for i := range journeys {
		if err := loadChildren(ctx, db, &journeys[i]); err != nil {
			return nil, err
		}
	}
	return journeys, nil
}

// GetJourneyByID returns a completed journey with its children
func (s *SQLiteStore) GetJourneyByID(ctx context.Context, id string) (*domain.Journey, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	journeys, err := queryJourneys(ctx, db,
		"SELECT "+journeyColumns+" FROM journeys WHERE id = ? AND is_draft = 0", id)
	if err != nil {
		return nil, fmt.Errorf("get journey: %w", err)
	}
	if len(journeys) == 0 {
		return nil, domain.ErrNotFound
	}
	j := &journeys[0]
	if err := loadChildren(ctx, db, j); err != nil {
		return nil, err
	}
	return j, nil
}

// DeleteJourney removes a draft or completed journey; the foreign keys
// cascade to every child table.
func (s *SQLiteStore) DeleteJourney(ctx context.Context, id string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM journeys WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete journey: %w", err)
	}
	return nil
}

// DeleteAllJourneys removes every completed journey. Drafts are kept.
func (s *SQLiteStore) DeleteAllJourneys(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM journeys WHERE is_draft = 0"); err != nil {
		return fmt.Errorf("delete all journeys: %w", err)
	}
	s.log.Info("all completed journeys deleted")
	return nil
}

// queryJourneys reads every row before returning so the single
// connection is free for follow-up queries.
func queryJourneys(ctx context.Context, q querier, query string, args ...any) ([]domain.Journey, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	journeys := []domain.Journey{}
	for rows.Next() {
		var (
			j                                 domain.Journey
			createdAt, updatedAt              int64
			completedAt                       sql.NullInt64
			isDraft                           int
			pathType, sentiment               sql.NullString
			thoughtText, situationText, notes sql.NullString
		)
		if err := rows.Scan(&j.ID, &createdAt, &updatedAt, &completedAt, &isDraft, &j.CurrentStep,
			&pathType, &sentiment, &thoughtText, &situationText, &notes); err != nil {
			return nil, fmt.Errorf("scan journey: %w", err)
		}
		j.CreatedAt = domain.FromMillis(createdAt)
		j.UpdatedAt = domain.FromMillis(updatedAt)
		j.CompletedAt = timePtr(completedAt)
		j.IsDraft = isDraft == 1
		j.PathType = domain.PathType(pathType.String)
		j.Sentiment = domain.Sentiment(sentiment.String)
		j.ThoughtText = thoughtText.String
		j.SituationText = situationText.String
		j.Notes = notes.String
		j.Emotions = []domain.Emotion{}
		journeys = append(journeys, j)
	}
	return journeys, rows.Err()
}

// loadChildren attaches emotions, plus the records that belong to the
// journey's path.
func loadChildren(ctx context.Context, q querier, j *domain.Journey) error {
	var err error
	if j.Emotions, err = loadEmotions(ctx, q, j.ID); err != nil {
		return err
	}
	switch j.PathType {
	case domain.PathReal:
		if j.ActionItems, err = loadActionItems(ctx, q, j.ID); err != nil {
			return err
		}
		if j.Reevaluation, err = loadReevaluation(ctx, q, j.ID); err != nil {
			return err
		}
	case domain.PathNotReal:
		if j.Transformation, err = loadTransformation(ctx, q, j.ID); err != nil {
			return err
		}
		if j.Habit, err = loadHabit(ctx, q, j.ID); err != nil {
			return err
		}
	}
	return nil
}

func loadEmotions(ctx context.Context, q querier, journeyID string) ([]domain.Emotion, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, journey_id, emotion_type, intensity, captured_at_step FROM journey_emotions WHERE journey_id = ? ORDER BY id",
		journeyID)
	if err != nil {
		return nil, fmt.Errorf("get emotions: %w", err)
	}
	defer rows.Close()

	emotions := []domain.Emotion{}
	for rows.Next() {
		var e domain.Emotion
		if err := rows.Scan(&e.ID, &e.JourneyID, &e.Type, &e.Intensity, &e.CapturedAtStep); err != nil {
			return nil, fmt.Errorf("scan emotion: %w", err)
		}
		emotions = append(emotions, e)
	}
	return emotions, rows.Err()
}

func loadActionItems(ctx context.Context, q querier, journeyID string) ([]domain.ActionItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, journey_id, action_text, is_completed, created_at, completed_at, target_date
		FROM journey_action_items WHERE journey_id = ? ORDER BY id`,
		journeyID)
	if err != nil {
		return nil, fmt.Errorf("get action items: %w", err)
	}
	defer rows.Close()

	items := []domain.ActionItem{}
	for rows.Next() {
		var (
			a                       domain.ActionItem
			completed               int
			createdAt               int64
			completedAt, targetDate sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.JourneyID, &a.Text, &completed, &createdAt, &completedAt, &targetDate); err != nil {
			return nil, fmt.Errorf("scan action item: %w", err)
		}
		a.IsCompleted = completed == 1
		a.CreatedAt = domain.FromMillis(createdAt)
		a.CompletedAt = timePtr(completedAt)
		a.TargetDate = timePtr(targetDate)
		items = append(items, a)
	}
	return items, rows.Err()
}

func loadTransformation(ctx context.Context, q querier, journeyID string) (*domain.Transformation, error) {
	var (
		t       domain.Transformation
		typeTag sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, journey_id, original_thought, transformed_thought, transformation_type
		FROM journey_transformations WHERE journey_id = ? ORDER BY id LIMIT 1`,
		journeyID,
	).Scan(&t.ID, &t.JourneyID, &t.OriginalThought, &t.TransformedThought, &typeTag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transformation: %w", err)
	}
	t.TransformationType = typeTag.String
	return &t, nil
}

func loadHabit(ctx context.Context, q querier, journeyID string) (*domain.Habit, error) {
	var (
		h                       domain.Habit
		reminder                int
		reminderTime, frequency sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, journey_id, habit_description, reminder_enabled, reminder_time, frequency
		FROM journey_habits WHERE journey_id = ? ORDER BY id LIMIT 1`,
		journeyID,
	).Scan(&h.ID, &h.JourneyID, &h.Description, &reminder, &reminderTime, &frequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	h.ReminderEnabled = reminder == 1
	h.ReminderTime = reminderTime.String
	h.Frequency = domain.HabitFrequency(frequency.String)
	return &h, nil
}

func loadReevaluation(ctx context.Context, q querier, journeyID string) (*domain.Reevaluation, error) {
	var (
		r        domain.Reevaluation
		insights sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, journey_id, original_belief_rating, reevaluated_belief_rating, insights
		FROM journey_reevaluations WHERE journey_id = ? ORDER BY id LIMIT 1`,
		journeyID,
	).Scan(&r.ID, &r.JourneyID, &r.OriginalBeliefRating, &r.ReevaluatedBeliefRating, &insights)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reevaluation: %w", err)
	}
	r.Insights = insights.String
	return &r, nil
}
