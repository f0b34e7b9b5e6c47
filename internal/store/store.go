// Package store persists submitted briefs. Three drivers share one
// interface: sqlite (default, atomic per-row updates), postgres, and the
// legacy whole-file JSON store kept for compatibility with older deploys.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-intake/internal/config"
	"github.com/sells-group/lead-intake/internal/model"
)

// ErrNotFound is returned by operations addressing a brief that does not
// exist. FlagSpam is the exception: it reports a bool instead so callers can
// treat a missing id as a no-op.
var ErrNotFound = eris.New("store: brief not found")

// BriefFilter specifies criteria for listing briefs.
type BriefFilter struct {
	Status model.BriefStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
}

// BriefStats aggregates counts by workflow status.
type BriefStats struct {
	Total       int                       `json:"total"`
	ByStatus    map[model.BriefStatus]int `json:"byStatus"`
	SpamFlagged int                       `json:"spamFlagged"`
}

// Store defines the persistence interface for the intake pipeline.
type Store interface {
	CreateBrief(ctx context.Context, brief *model.Brief) error
	// GetBrief returns (nil, nil) when no brief has the given id.
	GetBrief(ctx context.Context, id string) (*model.Brief, error)
	// ListBriefs returns briefs newest-first, optionally filtered by status.
	ListBriefs(ctx context.Context, filter BriefFilter) ([]model.Brief, error)
	UpdateStatus(ctx context.Context, id string, status model.BriefStatus) error
	// FlagSpam marks a brief as spam. Returns false, with the store
	// untouched, when the id does not exist.
	FlagSpam(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (*BriefStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "file":
		return NewFile(cfg), nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
