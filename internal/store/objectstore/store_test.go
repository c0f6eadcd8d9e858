package objectstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/logger"
	"github.com/pbaille/mindatlas/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "objects.db"), logger.Nop())
}

func TestObjectStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Repository {
		return newTestStore(t)
	})
}

func TestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Version(ctx)
	assert.ErrorIs(t, err, domain.ErrNotReady)

	require.NoError(t, s.Initialize(ctx))
	defer s.Close()
	v, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestIsDraftStoredAsInteger(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Initialize(ctx))
	defer s.Close()

	require.NoError(t, s.SaveDraft(ctx, storetest.Draft("d", 1)))
	require.NoError(t, s.SaveCompleted(ctx, storetest.EmotionalJourney("c", storetest.At(1))))

	var flags []int
	require.NoError(t, s.db.Model(&JourneyRecord{}).Order("id").Pluck("is_draft", &flags).Error)
	assert.Equal(t, []int{0, 1}, flags)
}

func TestSaveCompletedRollsBackOnChildFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Initialize(ctx))
	defer s.Close()

	errDiskFull := errors.New("disk full")
	err := s.db.Callback().Create().Before("gorm:create").Register("test:fail_action_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "journey_action_items" {
			tx.AddError(errDiskFull)
		}
	})
	require.NoError(t, err)

	err = s.SaveCompleted(ctx, storetest.RealJourney("broken", storetest.At(1)))
	require.ErrorIs(t, err, errDiskFull)

	_, err = s.GetJourneyByID(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var journeys, emotions int64
	require.NoError(t, s.db.Model(&JourneyRecord{}).Where("id = ?", "broken").Count(&journeys).Error)
	require.NoError(t, s.db.Model(&EmotionRecord{}).Where("journey_id = ?", "broken").Count(&emotions).Error)
	assert.Zero(t, journeys)
	assert.Zero(t, emotions, "emotions written before the failure are rolled back")

	// other collections still accept writes
	require.NoError(t, s.SaveCompleted(ctx, storetest.NotRealJourney("fine", storetest.At(2))))
}
