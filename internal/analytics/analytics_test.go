package analytics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/logger"
	"github.com/pbaille/mindatlas/internal/prefs"
	"github.com/pbaille/mindatlas/internal/store/objectstore"
	"github.com/pbaille/mindatlas/internal/store/storetest"
)

func TestDetermineSentiment(t *testing.T) {
	tests := []struct {
		name     string
		concerns []string
		want     domain.Sentiment
	}{
		{"empty", nil, domain.SentimentNeutral},
		{"unknown only", []string{"boredom"}, domain.SentimentNeutral},
		{"all negative", []string{"anxiety", "stress"}, domain.SentimentNegative},
		{"single positive", []string{"personal_growth"}, domain.SentimentPositive},
		{"half and half", []string{"anxiety", "personal_growth"}, domain.SentimentMixed},
		{"quarter positive", []string{"anxiety", "stress", "low_mood", "personal_growth"}, domain.SentimentMixed},
		{"one in five positive", []string{"anxiety", "stress", "low_mood", "financial", "personal_growth"}, domain.SentimentNegative},
		{"neutral dominates", []string{"work", "physical_health", "anxiety"}, domain.SentimentNeutral},
		{"half negative is not a majority", []string{"work", "anxiety"}, domain.SentimentNeutral},
		{"unknown values ignored", []string{"boredom", "personal_growth"}, domain.SentimentPositive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineSentiment(tt.concerns))
		})
	}
}

func TestCatalogIsConsistent(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Concerns {
		assert.False(t, seen[c.Value], "duplicate concern %s", c.Value)
		seen[c.Value] = true
		assert.True(t, c.Sentiment.Valid())
		assert.NotEqual(t, domain.SentimentMixed, c.Sentiment)
	}
	_, ok := LookupConcern(OtherConcern)
	assert.True(t, ok)
}

func TestSlotRepositoryConformsToCheckInOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewSlotRepository(prefs.NewMemoryStore())

	all, err := repo.GetAllCheckIns(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, repo.SaveCheckIn(ctx, domain.CheckIn{Timestamp: storetest.At(2), Concerns: []string{"work"}, Source: "journey"}))
	require.NoError(t, repo.SaveCheckIn(ctx, domain.CheckIn{Timestamp: storetest.At(1), Concerns: []string{"stress"}, Source: "journey"}))
	require.NoError(t, repo.SaveCheckIn(ctx, domain.CheckIn{Timestamp: storetest.At(3), Source: "dashboard"}))

	all, err = repo.GetAllCheckIns(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, storetest.At(3), all[0].Timestamp)
	assert.Empty(t, all[0].Concerns)
	assert.Equal(t, int64(3), all[0].ID)
	assert.Equal(t, []string{"work"}, all[1].Concerns)
	assert.Equal(t, []string{"stress"}, all[2].Concerns)

	ranged, err := repo.GetCheckIns(ctx, storetest.At(1), storetest.At(2))
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, storetest.At(2), ranged[0].Timestamp)
}

func TestSlotRepositorySurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := prefs.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, NewSlotRepository(store).SaveCheckIn(ctx, domain.CheckIn{Concerns: []string{"anxiety"}, Source: "journey"}))

	reopened, err := prefs.NewFileStore(dir)
	require.NoError(t, err)
	all, err := NewSlotRepository(reopened).GetAllCheckIns(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"anxiety"}, all[0].Concerns)
	assert.False(t, all[0].Timestamp.IsZero())
}

func TestSlotRepositoryCorruptSlot(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	require.NoError(t, store.Set(ctx, prefs.CheckInsKey, "not json"))
	repo := NewSlotRepository(store)

	_, err := repo.GetAllCheckIns(ctx)
	assert.Error(t, err)
	assert.Error(t, repo.SaveCheckIn(ctx, domain.CheckIn{Source: "journey"}), "a corrupt log is never overwritten")
}

type failingRepo struct {
	domain.CheckInRepository
}

func (failingRepo) SaveCheckIn(context.Context, domain.CheckIn) error {
	return errors.New("disk full")
}

func TestTrackCheckIn(t *testing.T) {
	ctx := context.Background()
	repo := NewSlotRepository(prefs.NewMemoryStore())
	svc := NewService(repo, logger.Nop())
	svc.now = func() time.Time { return storetest.At(5) }

	_, err := svc.TrackCheckIn(ctx, nil, "", "")
	assert.ErrorIs(t, err, ErrNoConcerns)
	_, err = svc.TrackCheckIn(ctx, []string{"boredom"}, "", "")
	assert.Error(t, err)

	c, err := svc.TrackCheckIn(ctx, []string{"anxiety"}, "ignored without other", "")
	require.NoError(t, err)
	assert.Empty(t, c.OtherText)
	assert.Equal(t, SourceJourney, c.Source)

	_, err = svc.TrackCheckIn(ctx, []string{"anxiety", OtherConcern}, "new city", "dashboard")
	require.NoError(t, err)

	all, err := svc.AllCheckIns(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new city", all[0].OtherText, "ties on timestamp list the newest entry first")
	assert.Equal(t, "dashboard", all[0].Source)

	between, err := svc.CheckInsBetween(ctx, storetest.At(6), storetest.At(10))
	require.NoError(t, err)
	assert.Empty(t, between)

	_, err = NewService(failingRepo{}, nil).TrackCheckIn(ctx, []string{"work"}, "", "")
	assert.Error(t, err)
}

func TestConcernStatistics(t *testing.T) {
	ctx := context.Background()
	repo := NewSlotRepository(prefs.NewMemoryStore())
	require.NoError(t, repo.SaveCheckIn(ctx, domain.CheckIn{Concerns: []string{"anxiety", "work"}, Source: "journey"}))
	require.NoError(t, repo.SaveCheckIn(ctx, domain.CheckIn{Concerns: []string{"anxiety", "legacy_value"}, Source: "journey"}))

	stats, err := NewService(repo, nil).ConcernStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, stats, len(Concerns)+1)

	assert.Equal(t, ConcernCount{Concern: "anxiety", Count: 2}, stats[0])
	assert.Equal(t, ConcernCount{Concern: "low_mood", Count: 0}, stats[1])
	assert.Equal(t, ConcernCount{Concern: "work", Count: 1}, stats[4])
	assert.Equal(t, ConcernCount{Concern: "legacy_value", Count: 1}, stats[len(stats)-1])
}

func TestServiceOverStoreSink(t *testing.T) {
	ctx := context.Background()
	repo := objectstore.New(filepath.Join(t.TempDir(), "objects.db"), logger.Nop())
	require.NoError(t, repo.Initialize(ctx))
	defer repo.Close()

	svc := NewService(repo, nil)
	_, err := svc.TrackCheckIn(ctx, []string{"personal_growth"}, "", "")
	require.NoError(t, err)

	stats, err := svc.ConcernStatistics(ctx)
	require.NoError(t, err)
	for _, s := range stats {
		if s.Concern == "personal_growth" {
			assert.Equal(t, 1, s.Count)
		}
	}
}
