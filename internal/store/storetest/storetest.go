// Package storetest holds the behavior every storage backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/mindatlas/internal/domain"
)

// Factory returns a fresh, not yet initialized repository
type Factory func(t *testing.T) domain.Repository

// Run exercises the repository contract against the backend built by newRepo
func Run(t *testing.T, newRepo Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo domain.Repository)
	}{
		{"RoundTripReal", testRoundTripReal},
		{"RoundTripNotReal", testRoundTripNotReal},
		{"RoundTripEmotional", testRoundTripEmotional},
		{"DeleteCascades", testDeleteCascades},
		{"DeleteAllKeepsDrafts", testDeleteAllKeepsDrafts},
		{"FilterBeforePaginate", testFilterBeforePaginate},
		{"DateAndEmotionFilters", testDateAndEmotionFilters},
		{"DefaultPageSize", testDefaultPageSize},
		{"DraftOrdering", testDraftOrdering},
		{"DraftLifecycle", testDraftLifecycle},
		{"DraftOverCompleted", testDraftOverCompleted},
		{"ResaveReplacesChildren", testResaveReplacesChildren},
		{"CompletedAtStamped", testCompletedAtStamped},
		{"CompletedAtNormalized", testCompletedAtNormalized},
		{"RejectsOutOfRangeChildren", testRejectsOutOfRangeChildren},
		{"RejectsInvalidDraftRow", testRejectsInvalidDraftRow},
		{"CheckIns", testCheckIns},
	}

	t.Run("NotReadyBeforeInitialize", func(t *testing.T) {
		repo := newRepo(t)
		defer repo.Close()
		ctx := context.Background()

		assert.False(t, repo.IsReady())
		_, err := repo.GetDrafts(ctx)
		assert.ErrorIs(t, err, domain.ErrNotReady)
		assert.ErrorIs(t, repo.SaveCompleted(ctx, RealJourney("j1", At(1))), domain.ErrNotReady)
		assert.ErrorIs(t, repo.SaveCheckIn(ctx, domain.CheckIn{Source: "test"}), domain.ErrNotReady)

		require.NoError(t, repo.Initialize(ctx))
		require.NoError(t, repo.Initialize(ctx), "initialize is idempotent")
		assert.True(t, repo.IsReady())
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			require.NoError(t, repo.Initialize(context.Background()))
			defer repo.Close()
			tt.fn(t, repo)
		})
	}
}

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// At returns a fixed UTC time n minutes after the test epoch
func At(n int) time.Time {
	return epoch.Add(time.Duration(n) * time.Minute)
}

func timeRef(t time.Time) *time.Time {
	return &t
}

// RealJourney builds a completed REAL journey with action items and a
// reevaluation.
func RealJourney(id string, completedAt time.Time) *domain.Journey {
	created := completedAt.Add(-10 * time.Minute)
	return &domain.Journey{
		ID:            id,
		CreatedAt:     created,
		UpdatedAt:     created,
		CompletedAt:   timeRef(completedAt),
		CurrentStep:   8,
		PathType:      domain.PathReal,
		Sentiment:     domain.SentimentMixed,
		ThoughtText:   "I will fail the interview",
		SituationText: "Preparing for the interview on Monday morning",
		Notes:         "slept badly",
		Emotions: []domain.Emotion{
			{Type: "anxious", Intensity: 4, CapturedAtStep: 2},
			{Type: "tired", Intensity: 2, CapturedAtStep: 2},
		},
		ActionItems: []domain.ActionItem{
			{Text: "Review the job description", CreatedAt: created, TargetDate: timeRef(completedAt.Add(48 * time.Hour))},
			{Text: "Mock interview with a friend", IsCompleted: true, CreatedAt: created, CompletedAt: timeRef(completedAt)},
		},
		Reevaluation: &domain.Reevaluation{
			OriginalBeliefRating:    8,
			ReevaluatedBeliefRating: 4,
			Insights:                "I have prepared more than I thought",
		},
	}
}

// NotRealJourney builds a completed NOT_REAL journey with a transformation
// and a habit.
func NotRealJourney(id string, completedAt time.Time) *domain.Journey {
	created := completedAt.Add(-10 * time.Minute)
	return &domain.Journey{
		ID:            id,
		CreatedAt:     created,
		UpdatedAt:     created,
		CompletedAt:   timeRef(completedAt),
		CurrentStep:   8,
		PathType:      domain.PathNotReal,
		Sentiment:     domain.SentimentNegative,
		ThoughtText:   "Nobody likes me",
		SituationText: "Friends went out without inviting me",
		Emotions: []domain.Emotion{
			{Type: "sad", Intensity: 3, CapturedAtStep: 2},
		},
		Transformation: &domain.Transformation{
			OriginalThought:    "Nobody likes me",
			TransformedThought: "Some plans just happen without me",
			TransformationType: "decatastrophize",
		},
		Habit: &domain.Habit{
			Description:     "Reach out to one friend",
			ReminderEnabled: true,
			ReminderTime:    "18:30",
			Frequency:       domain.FrequencyWeekly,
		},
	}
}

// EmotionalJourney builds a completed EMOTIONAL journey
func EmotionalJourney(id string, completedAt time.Time) *domain.Journey {
	created := completedAt.Add(-5 * time.Minute)
	return &domain.Journey{
		ID:            id,
		CreatedAt:     created,
		UpdatedAt:     created,
		CompletedAt:   timeRef(completedAt),
		CurrentStep:   4,
		PathType:      domain.PathEmotional,
		Sentiment:     domain.SentimentNeutral,
		SituationText: "Long day with no particular reason to feel low",
		Emotions: []domain.Emotion{
			{Type: "overwhelmed", Intensity: 5, CapturedAtStep: 2},
		},
	}
}

// Draft builds an in-progress journey
func Draft(id string, step int) *domain.Journey {
	return &domain.Journey{
		ID:          id,
		CreatedAt:   epoch,
		UpdatedAt:   epoch,
		IsDraft:     true,
		CurrentStep: step,
		ThoughtText: "draft thought",
		Emotions:    []domain.Emotion{},
	}
}

// ignoreIDs skips the store-assigned ids of the child records
var ignoreIDs = cmp.Options{
	cmpopts.IgnoreFields(domain.Emotion{}, "ID", "JourneyID"),
	cmpopts.IgnoreFields(domain.ActionItem{}, "ID", "JourneyID"),
	cmpopts.IgnoreFields(domain.Transformation{}, "ID", "JourneyID"),
	cmpopts.IgnoreFields(domain.Habit{}, "ID", "JourneyID"),
	cmpopts.IgnoreFields(domain.Reevaluation{}, "ID", "JourneyID"),
}

// AssertSameJourney fails the test when the journeys differ in anything
// but child record ids
func AssertSameJourney(t *testing.T, want, got *domain.Journey) {
	t.Helper()
	if diff := cmp.Diff(want, got, ignoreIDs); diff != "" {
		t.Errorf("journey mismatch (-want +got):\n%s", diff)
	}
}

func assertRoundTrip(t *testing.T, repo domain.Repository, j *domain.Journey) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.SaveCompleted(ctx, j))
	assert.False(t, j.IsDraft)

	got, err := repo.GetJourneyByID(ctx, j.ID)
	require.NoError(t, err)
	AssertSameJourney(t, j, got)

	for _, e := range got.Emotions {
		assert.Equal(t, j.ID, e.JourneyID)
		assert.NotZero(t, e.ID)
	}
}

func testRoundTripReal(t *testing.T, repo domain.Repository) {
	assertRoundTrip(t, repo, RealJourney("real-1", At(10)))
}

func testRoundTripNotReal(t *testing.T, repo domain.Repository) {
	assertRoundTrip(t, repo, NotRealJourney("not-real-1", At(10)))
}

func testRoundTripEmotional(t *testing.T, repo domain.Repository) {
	assertRoundTrip(t, repo, EmotionalJourney("emotional-1", At(10)))
}

func testDeleteCascades(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.SaveCompleted(ctx, RealJourney("gone", At(1))))
	require.NoError(t, repo.SaveCompleted(ctx, RealJourney("kept", At(2))))

	require.NoError(t, repo.DeleteJourney(ctx, "gone"))

	_, err := repo.GetJourneyByID(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the same id saved again without children must not pick up old rows
	bare := &domain.Journey{ID: "gone", CreatedAt: At(3), PathType: domain.PathReal, CurrentStep: 8}
	require.NoError(t, repo.SaveCompleted(ctx, bare))
	got, err := repo.GetJourneyByID(ctx, "gone")
	require.NoError(t, err)
	assert.Empty(t, got.Emotions)
	assert.Empty(t, got.ActionItems)
	assert.Nil(t, got.Reevaluation)

	kept, err := repo.GetJourneyByID(ctx, "kept")
	require.NoError(t, err)
	assert.Len(t, kept.Emotions, 2)
	assert.Len(t, kept.ActionItems, 2)
	assert.NotNil(t, kept.Reevaluation)

	// deleting a draft goes through the same path
	require.NoError(t, repo.SaveDraft(ctx, Draft("draft", 2)))
	require.NoError(t, repo.DeleteJourney(ctx, "draft"))
	_, err = repo.GetLatestDraft(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDeleteAllKeepsDrafts(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.SaveCompleted(ctx, RealJourney("a", At(1))))
	require.NoError(t, repo.SaveCompleted(ctx, NotRealJourney("b", At(2))))
	require.NoError(t, repo.SaveDraft(ctx, Draft("d", 3)))

	require.NoError(t, repo.DeleteAllJourneys(ctx))

	completed, err := repo.GetCompletedJourneys(ctx, 0, 0, domain.Filters{})
	require.NoError(t, err)
	assert.Empty(t, completed)

	drafts, err := repo.GetDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "d", drafts[0].ID)

	// children of the deleted journeys are gone too
	require.NoError(t, repo.SaveCompleted(ctx, &domain.Journey{ID: "a", CreatedAt: At(4), PathType: domain.PathReal}))
	got, err := repo.GetJourneyByID(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got.Emotions)
	assert.Empty(t, got.ActionItems)
}

func testFilterBeforePaginate(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.SaveCompleted(ctx, RealJourney("real-oldest", At(1))))
	require.NoError(t, repo.SaveCompleted(ctx, NotRealJourney("not-real-1", At(2))))
	require.NoError(t, repo.SaveCompleted(ctx, RealJourney("real-middle", At(3))))
	require.NoError(t, repo.SaveCompleted(ctx, NotRealJourney("not-real-2", At(4))))
	require.NoError(t, repo.SaveCompleted(ctx, RealJourney("real-newest", At(5))))

	page, err := repo.GetCompletedJourneys(ctx, 1, 1, domain.Filters{PathType: domain.PathReal})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "real-middle", page[0].ID)
	assert.Len(t, page[0].ActionItems, 2, "children are loaded for listed journeys")

	all, err := repo.GetCompletedJourneys(ctx, 10, 0, domain.Filters{})
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, j := range all {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"real-newest", "not-real-2", "real-middle", "not-real-1", "real-oldest"}, ids)

	beyond, err := repo.GetCompletedJourneys(ctx, 10, 10, domain.Filters{})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func testDateAndEmotionFilters(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.SaveCompleted(ctx, RealJourney("r1", At(10))))
	require.NoError(t, repo.SaveCompleted(ctx, NotRealJourney("n1", At(20))))
	require.NoError(t, repo.SaveCompleted(ctx, EmotionalJourney("e1", At(30))))

	got, err := repo.GetCompletedJourneys(ctx, 10, 0, domain.Filters{
		StartDate: timeRef(At(10)),
		EndDate:   timeRef(At(20)),
	})
	require.NoError(t, err)
	require.Len(t, got, 2, "date bounds are inclusive")
	assert.Equal(t, "n1", got[0].ID)
	assert.Equal(t, "r1", got[1].ID)

	got, err = repo.GetCompletedJourneys(ctx, 10, 0, domain.Filters{EmotionType: "sad"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].ID)

	got, err = repo.GetCompletedJourneys(ctx, 10, 0, domain.Filters{
		StartDate: timeRef(At(15)),
		PathType:  domain.PathReal,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testDefaultPageSize(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	for i := 0; i < domain.DefaultPageSize+2; i++ {
		require.NoError(t, repo.SaveCompleted(ctx, EmotionalJourney(string(rune('a'+i)), At(i))))
	}
	got, err := repo.GetCompletedJourneys(ctx, 0, 0, domain.Filters{})
	require.NoError(t, err)
	assert.Len(t, got, domain.DefaultPageSize)
}

func testDraftOrdering(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.SaveDraft(ctx, Draft("first", 1)))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SaveDraft(ctx, Draft("second", 2)))
	time.Sleep(5 * time.Millisecond)
	// touching the first draft moves it back to the top
	require.NoError(t, repo.SaveDraft(ctx, Draft("first", 3)))

	drafts, err := repo.GetDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "first", drafts[0].ID)
	assert.Equal(t, 3, drafts[0].CurrentStep)
	assert.True(t, drafts[0].IsDraft)
	assert.Nil(t, drafts[0].CompletedAt)
	assert.Equal(t, "second", drafts[1].ID)

	latest, err := repo.GetLatestDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", latest.ID)
	assert.Equal(t, epoch, latest.CreatedAt, "created_at survives updates")
}

func testDraftLifecycle(t *testing.T, repo domain.Repository) {
	ctx := context.Background()

	_, err := repo.GetLatestDraft(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	d := Draft("j1", 2)
	require.NoError(t, repo.SaveDraft(ctx, d))
	assert.True(t, d.IsDraft)

	_, err = repo.GetJourneyByID(ctx, "j1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "drafts are not part of the history")

	// completing the draft moves it out of the draft list
	done := RealJourney("j1", At(5))
	require.NoError(t, repo.SaveCompleted(ctx, done))
	drafts, err := repo.GetDrafts(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)

	// DeleteDraft never touches completed journeys
	require.NoError(t, repo.DeleteDraft(ctx, "j1"))
	_, err = repo.GetJourneyByID(ctx, "j1")
	require.NoError(t, err)

	require.NoError(t, repo.SaveDraft(ctx, Draft("j2", 1)))
	require.NoError(t, repo.DeleteDraft(ctx, "j2"))
	_, err = repo.GetLatestDraft(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDraftOverCompleted(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.SaveCompleted(ctx, NotRealJourney("j1", At(1))))

	err := repo.SaveDraft(ctx, Draft("j1", 2))
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)

	got, err := repo.GetJourneyByID(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, got.IsDraft)
	assert.NotNil(t, got.Transformation)
}

func testResaveReplacesChildren(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	j := RealJourney("j1", At(1))
	require.NoError(t, repo.SaveCompleted(ctx, j))

	j.ActionItems = j.ActionItems[:1]
	j.Emotions = append(j.Emotions, domain.Emotion{Type: "hopeful", Intensity: 3, CapturedAtStep: 7})
	require.NoError(t, repo.SaveCompleted(ctx, j))

	got, err := repo.GetJourneyByID(ctx, "j1")
	require.NoError(t, err)
	assert.Len(t, got.ActionItems, 1)
	assert.Len(t, got.Emotions, 3)
	AssertSameJourney(t, j, got)
}

func testCompletedAtStamped(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	j := EmotionalJourney("j1", At(1))
	j.CompletedAt = nil
	j.IsDraft = true

	before := domain.Now()
	require.NoError(t, repo.SaveCompleted(ctx, j))

	require.NotNil(t, j.CompletedAt)
	assert.False(t, j.IsDraft)
	assert.False(t, j.CompletedAt.Before(before))

	got, err := repo.GetJourneyByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, *j.CompletedAt, *got.CompletedAt)
	assert.Equal(t, j.UpdatedAt, got.UpdatedAt)
}

func testCompletedAtNormalized(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	cet := time.FixedZone("CET", 60*60)
	j := EmotionalJourney("j1", time.Date(2025, 3, 1, 10, 0, 0, 123456789, cet))

	require.NoError(t, repo.SaveCompleted(ctx, j))
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 123000000, time.UTC), *j.CompletedAt)

	got, err := repo.GetJourneyByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, *j.CompletedAt, *got.CompletedAt)
}

func testRejectsOutOfRangeChildren(t *testing.T, repo domain.Repository) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(j *domain.Journey)
	}{
		{"intensity", func(j *domain.Journey) { j.Emotions[0].Intensity = 9 }},
		{"zero intensity", func(j *domain.Journey) { j.Emotions[0].Intensity = 0 }},
		{"belief before", func(j *domain.Journey) { j.Reevaluation.OriginalBeliefRating = 42 }},
		{"belief after", func(j *domain.Journey) { j.Reevaluation.ReevaluatedBeliefRating = -1 }},
		{"path", func(j *domain.Journey) { j.PathType = "SIDEWAYS" }},
		{"sentiment", func(j *domain.Journey) { j.Sentiment = "angry" }},
		{"frequency", func(j *domain.Journey) { j.Habit = &domain.Habit{Description: "walk", Frequency: "HOURLY"} }},
	}
	for _, tt := range tests {
		j := RealJourney("bad", At(1))
		tt.mutate(j)

		err := repo.SaveCompleted(ctx, j)
		assert.ErrorIs(t, err, domain.ErrInvalidJourney, tt.name)

		_, err = repo.GetJourneyByID(ctx, "bad")
		assert.ErrorIs(t, err, domain.ErrNotFound, tt.name)
	}

	page, err := repo.GetCompletedJourneys(ctx, 0, 0, domain.Filters{})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testRejectsInvalidDraftRow(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	d := Draft("d1", 2)
	d.Sentiment = "angry"

	assert.ErrorIs(t, repo.SaveDraft(ctx, d), domain.ErrInvalidJourney)

	drafts, err := repo.GetDrafts(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func testCheckIns(t *testing.T, repo domain.Repository) {
	ctx := context.Background()

	all, err := repo.GetAllCheckIns(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, repo.SaveCheckIn(ctx, domain.CheckIn{
		Timestamp: At(1), Concerns: []string{"anxiety", "work"}, Source: "journey_start",
	}))
	require.NoError(t, repo.SaveCheckIn(ctx, domain.CheckIn{
		Timestamp: At(2), Concerns: []string{"other"}, OtherText: "moving house", Source: "dashboard",
	}))
	require.NoError(t, repo.SaveCheckIn(ctx, domain.CheckIn{
		Timestamp: At(3), Source: "dashboard",
	}))

	all, err = repo.GetAllCheckIns(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, At(3), all[0].Timestamp)
	assert.Empty(t, all[0].Concerns)
	assert.Equal(t, []string{"other"}, all[1].Concerns)
	assert.Equal(t, "moving house", all[1].OtherText)
	assert.Equal(t, []string{"anxiety", "work"}, all[2].Concerns)
	assert.Equal(t, "journey_start", all[2].Source)
	assert.NotZero(t, all[2].ID)

	ranged, err := repo.GetCheckIns(ctx, At(1), At(2))
	require.NoError(t, err)
	require.Len(t, ranged, 2, "range is inclusive")
	assert.Equal(t, At(2), ranged[0].Timestamp)
	assert.Equal(t, At(1), ranged[1].Timestamp)
}
