package objectstore

import (
	"context"
	"fmt"
	"time"

	"github.com/pbaille/mindatlas/internal/domain"
)

func (s *Store) SaveCheckIn(ctx context.Context, c domain.CheckIn) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	rec, err := toCheckInRecord(c)
	if err != nil {
		return err
	}
	if err := db.Create(&rec).Error; err != nil {
		return fmt.Errorf("save check-in: %w", err)
	}
	return nil
}

// GetCheckIns returns check-ins between from and to inclusive, newest first
func (s *Store) GetCheckIns(ctx context.Context, from, to time.Time) ([]domain.CheckIn, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var recs []CheckInRecord
	err = db.Where("timestamp >= ? AND timestamp <= ?", from.UnixMilli(), to.UnixMilli()).
		Order("timestamp DESC, id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("get check-ins: %w", err)
	}
	return checkInsFromRecords(recs)
}

func (s *Store) GetAllCheckIns(ctx context.Context) ([]domain.CheckIn, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var recs []CheckInRecord
	if err := db.Order("timestamp DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get check-ins: %w", err)
	}
	return checkInsFromRecords(recs)
}

func checkInsFromRecords(recs []CheckInRecord) ([]domain.CheckIn, error) {
	out := make([]domain.CheckIn, 0, len(recs))
	for _, r := range recs {
		c, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
