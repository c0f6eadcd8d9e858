package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pbaille/mindatlas/internal/domain"
)

// SaveCheckIn appends a check-in. Concerns are stored as a JSON array.
func (s *SQLiteStore) SaveCheckIn(ctx context.Context, c domain.CheckIn) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	concerns := c.Concerns
	if concerns == nil {
		concerns = []string{}
	}
	raw, err := json.Marshal(concerns)
	if err != nil {
		return fmt.Errorf("encode concerns: %w", err)
	}

	ts := c.Timestamp
	if ts.IsZero() {
		ts = domain.Now()
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO analytics_checkins (timestamp, concerns, other_text, source) VALUES (?, ?, ?, ?)",
		ts.UnixMilli(), string(raw), nullString(c.OtherText), c.Source,
	)
	if err != nil {
		return fmt.Errorf("save check-in: %w", err)
	}
	return nil
}

// GetCheckIns returns check-ins between from and to inclusive, newest first
func (s *SQLiteStore) GetCheckIns(ctx context.Context, from, to time.Time) ([]domain.CheckIn, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	checkIns, err := queryCheckIns(ctx, db, `
		SELECT id, timestamp, concerns, other_text, source FROM analytics_checkins
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC, id DESC`,
		from.UnixMilli(), to.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("get check-ins: %w", err)
	}
	return checkIns, nil
}

func (s *SQLiteStore) GetAllCheckIns(ctx context.Context) ([]domain.CheckIn, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	checkIns, err := queryCheckIns(ctx, db, `
		SELECT id, timestamp, concerns, other_text, source FROM analytics_checkins
		ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("get check-ins: %w", err)
	}
	return checkIns, nil
}

func queryCheckIns(ctx context.Context, q querier, query string, args ...any) ([]domain.CheckIn, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checkIns := []domain.CheckIn{}
	for rows.Next() {
		var (
			c         domain.CheckIn
			ts        int64
			concerns  string
			otherText sql.NullString
		)
		if err := rows.Scan(&c.ID, &ts, &concerns, &otherText, &c.Source); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		if err := json.Unmarshal([]byte(concerns), &c.Concerns); err != nil {
			return nil, fmt.Errorf("decode concerns of check-in %d: %w", c.ID, err)
		}
		c.Timestamp = domain.FromMillis(ts)
		c.OtherText = otherText.String
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}
