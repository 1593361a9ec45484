package baseline

import (
	"context"

	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/pkg/errors"
)

// ErrNoBaseline is returned by Compare/Validate when no baseline is active,
// so callers can tell "nothing wrong" apart from "nothing to compare against".
var ErrNoBaseline = errors.New("no active baseline")

// Store persists baseline snapshots. Implementations are expected to treat
// the snapshot payload as opaque and key it by baseline id.
type Store interface {
	// Save inserts or updates a baseline with its current status.
	Save(ctx context.Context, b *domain.Baseline) error
	// LoadLatest returns the most recent active baseline, or ErrNoBaseline.
	LoadLatest(ctx context.Context) (*domain.Baseline, error)
	// LoadAll returns all stored baselines, newest version first.
	LoadAll(ctx context.Context) ([]*domain.Baseline, error)
}
