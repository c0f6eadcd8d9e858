package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/prefs"
)

// SlotRepository keeps the check-in log as one JSON array under
// prefs.CheckInsKey, apart from the journey database.
type SlotRepository struct {
	mu    sync.Mutex
	store prefs.Store
}

var _ domain.CheckInRepository = (*SlotRepository)(nil)

func NewSlotRepository(store prefs.Store) *SlotRepository {
	return &SlotRepository{store: store}
}

// slotEntry is the stored shape, timestamps in unix milliseconds
type slotEntry struct {
	ID        int64    `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Concerns  []string `json:"concerns"`
	OtherText string   `json:"other_text,omitempty"`
	Source    string   `json:"source"`
}

func (r *SlotRepository) load(ctx context.Context) ([]slotEntry, error) {
	raw, ok, err := r.store.Get(ctx, prefs.CheckInsKey)
	if err != nil {
		return nil, fmt.Errorf("read check-ins: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var entries []slotEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode check-ins: %w", err)
	}
	return entries, nil
}

// SaveCheckIn appends to the log. Ids are assigned in insertion order.
func (r *SlotRepository) SaveCheckIn(ctx context.Context, c domain.CheckIn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		return err
	}

	ts := c.Timestamp
	if ts.IsZero() {
		ts = domain.Now()
	}
	concerns := c.Concerns
	if concerns == nil {
		concerns = []string{}
	}
	var next int64 = 1
	if n := len(entries); n > 0 {
		next = entries[n-1].ID + 1
	}
	entries = append(entries, slotEntry{
		ID:        next,
		Timestamp: ts.UnixMilli(),
		Concerns:  concerns,
		OtherText: c.OtherText,
		Source:    c.Source,
	})

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode check-ins: %w", err)
	}
	if err := r.store.Set(ctx, prefs.CheckInsKey, string(raw)); err != nil {
		return fmt.Errorf("save check-in: %w", err)
	}
	return nil
}

// GetCheckIns returns check-ins between from and to inclusive, newest first
func (r *SlotRepository) GetCheckIns(ctx context.Context, from, to time.Time) ([]domain.CheckIn, error) {
	return r.query(ctx, func(e slotEntry) bool {
		return e.Timestamp >= from.UnixMilli() && e.Timestamp <= to.UnixMilli()
	})
}

func (r *SlotRepository) GetAllCheckIns(ctx context.Context) ([]domain.CheckIn, error) {
	return r.query(ctx, func(slotEntry) bool { return true })
}

func (r *SlotRepository) query(ctx context.Context, keep func(slotEntry) bool) ([]domain.CheckIn, error) {
	r.mu.Lock()
	entries, err := r.load(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := []domain.CheckIn{}
	for _, e := range entries {
		if !keep(e) {
			continue
		}
		concerns := e.Concerns
		if concerns == nil {
			concerns = []string{}
		}
		out = append(out, domain.CheckIn{
			ID:        e.ID,
			Timestamp: domain.FromMillis(e.Timestamp),
			Concerns:  concerns,
			OtherText: e.OtherText,
			Source:    e.Source,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].Timestamp.Equal(out[b].Timestamp) {
			return out[a].Timestamp.After(out[b].Timestamp)
		}
		return out[a].ID > out[b].ID
	})
	return out, nil
}
