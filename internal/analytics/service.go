// Package analytics records check-ins: which concerns brought the user to
// start a journey. The log is independent of the journeys themselves.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/logger"
)

// SourceJourney tags check-ins made when starting a journey
const SourceJourney = "journey"

var ErrNoConcerns = errors.New("at least one concern is required")

type Service struct {
	repo domain.CheckInRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo domain.CheckInRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log.With("component", "analytics"), now: domain.Now}
}

// TrackCheckIn appends a check-in. The free text is kept only when the
// "other" concern was selected.
func (s *Service) TrackCheckIn(ctx context.Context, concerns []string, otherText, source string) (domain.CheckIn, error) {
	if len(concerns) == 0 {
		return domain.CheckIn{}, ErrNoConcerns
	}
	hasOther := false
	for _, c := range concerns {
		if _, ok := LookupConcern(c); !ok {
			return domain.CheckIn{}, fmt.Errorf("unknown concern %q", c)
		}
		if c == OtherConcern {
			hasOther = true
		}
	}
	if !hasOther {
		otherText = ""
	}
	if source == "" {
		source = SourceJourney
	}

	c := domain.CheckIn{
		Timestamp: s.now(),
		Concerns:  append([]string(nil), concerns...),
		OtherText: otherText,
		Source:    source,
	}
	if err := s.repo.SaveCheckIn(ctx, c); err != nil {
		s.log.Error("track check-in failed", "error", err)
		return domain.CheckIn{}, fmt.Errorf("track check-in: %w", err)
	}
	s.log.Debug("check-in tracked", "concerns", concerns, "other_text", otherText, "source", source)
	return c, nil
}

// CheckInsBetween returns check-ins in [from, to], newest first
func (s *Service) CheckInsBetween(ctx context.Context, from, to time.Time) ([]domain.CheckIn, error) {
	return s.repo.GetCheckIns(ctx, from, to)
}

func (s *Service) AllCheckIns(ctx context.Context) ([]domain.CheckIn, error) {
	return s.repo.GetAllCheckIns(ctx)
}

// ConcernCount is how often a concern was selected
type ConcernCount struct {
	Concern string `json:"concern"`
	Count   int    `json:"count"`
}

// ConcernStatistics counts selections over the whole log. Every catalog
// concern is listed, in catalog order, even when never selected; values
// outside the catalog follow in name order.
func (s *Service) ConcernStatistics(ctx context.Context) ([]ConcernCount, error) {
	checkIns, err := s.repo.GetAllCheckIns(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(Concerns))
	for _, c := range checkIns {
		for _, concern := range c.Concerns {
			counts[concern]++
		}
	}

	stats := make([]ConcernCount, 0, len(counts)+len(Concerns))
	for _, c := range Concerns {
		stats = append(stats, ConcernCount{Concern: c.Value, Count: counts[c.Value]})
		delete(counts, c.Value)
	}
	extra := make([]string, 0, len(counts))
	for concern := range counts {
		extra = append(extra, concern)
	}
	sort.Strings(extra)
	for _, concern := range extra {
		stats = append(stats, ConcernCount{Concern: concern, Count: counts[concern]})
	}
	return stats, nil
}
