package store

import (
	"context"
	"fmt"

	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/logger"
	"github.com/pbaille/mindatlas/internal/store/objectstore"
)

// Platform selects the storage backend
type Platform string

const (
	// PlatformNative is the relational on-device backend
	PlatformNative Platform = "native"
	// PlatformWeb is the embedded object store
	PlatformWeb Platform = "web"
	// PlatformAuto picks native when the binary can run it
	PlatformAuto Platform = "auto"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformNative, PlatformWeb, PlatformAuto:
		return true
	}
	return false
}

// Resolve turns auto into a concrete platform
func (p Platform) Resolve() Platform {
	if p != PlatformAuto && p != "" {
		return p
	}
	if nativeAvailable {
		return PlatformNative
	}
	return PlatformWeb
}

// Options configure Open
type Options struct {
	Platform Platform
	Path     string
}

// Versioned is implemented by backends that report a schema version
type Versioned interface {
	Version(ctx context.Context) (int, error)
}

// New builds the backend for the platform without opening it
func New(opts Options, log *logger.Logger) (domain.Repository, Platform, error) {
	if opts.Platform != "" && !opts.Platform.Valid() {
		return nil, "", fmt.Errorf("unknown platform %q", opts.Platform)
	}
	if opts.Path == "" {
		return nil, "", fmt.Errorf("database path is required")
	}

	platform := opts.Platform.Resolve()
	switch platform {
	case PlatformNative:
		if !nativeAvailable {
			return nil, "", fmt.Errorf("native storage needs a cgo build")
		}
		return NewSQLite(opts.Path, log), platform, nil
	default:
		return objectstore.New(opts.Path, log), platform, nil
	}
}

// Open builds the backend and initializes it. An initialization failure is
// returned as is; nothing retries it.
func Open(ctx context.Context, opts Options, log *logger.Logger) (domain.Repository, Platform, error) {
	repo, platform, err := New(opts, log)
	if err != nil {
		return nil, "", err
	}
	if err := repo.Initialize(ctx); err != nil {
		return nil, "", fmt.Errorf("initialize %s storage: %w", platform, err)
	}
	return repo, platform, nil
}
