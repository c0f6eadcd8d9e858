package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a journey or draft does not exist
	ErrNotFound = errors.New("not found")
	// ErrNotReady is returned by repositories used before Initialize succeeded
	ErrNotReady = errors.New("repository not initialized")
	// ErrNoActiveJourney is returned when the state machine has nothing in progress
	ErrNoActiveJourney = errors.New("no active journey")
	// ErrPathTypeLocked is returned when changing a path type that was already chosen
	ErrPathTypeLocked = errors.New("path type already set")
	// ErrAlreadyCompleted is returned when saving a draft over a completed journey
	ErrAlreadyCompleted = errors.New("journey already completed")
	// ErrInvalidJourney is returned when a journey holds out of range values
	ErrInvalidJourney = errors.New("invalid journey")
)

// DefaultPageSize is used when a history query passes a non-positive limit
const DefaultPageSize = 20

// JourneyRepository persists drafts and completed journeys. Both storage
// backends implement it with identical observable behavior.
type JourneyRepository interface {
	// Initialize opens or creates the store. It is idempotent and must
	// succeed before any other call.
	Initialize(ctx context.Context) error
	IsReady() bool

	// SaveDraft upserts the journey row as a draft and stamps UpdatedAt.
	// Child records are not stored for drafts.
	SaveDraft(ctx context.Context, j *Journey) error
	// GetDrafts returns drafts ordered by most recently updated first
	GetDrafts(ctx context.Context) ([]Journey, error)
	GetLatestDraft(ctx context.Context) (*Journey, error)
	DeleteDraft(ctx context.Context, id string) error

	// SaveCompleted writes the journey and all of its children atomically
	SaveCompleted(ctx context.Context, j *Journey) error
	// GetCompletedJourneys filters first, then orders by completed_at
	// descending, then paginates.
	GetCompletedJourneys(ctx context.Context, limit, offset int, f Filters) ([]Journey, error)
	GetJourneyByID(ctx context.Context, id string) (*Journey, error)
	DeleteJourney(ctx context.Context, id string) error
	DeleteAllJourneys(ctx context.Context) error
}

// CheckInRepository stores the append-only check-in log
type CheckInRepository interface {
	SaveCheckIn(ctx context.Context, c CheckIn) error
	// GetCheckIns returns check-ins with from <= timestamp <= to, newest first
	GetCheckIns(ctx context.Context, from, to time.Time) ([]CheckIn, error)
	GetAllCheckIns(ctx context.Context) ([]CheckIn, error)
}

// Repository is what a storage backend provides
type Repository interface {
	JourneyRepository
	CheckInRepository
	io.Closer
}
