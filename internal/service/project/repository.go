package project

import (
	"context"

	"github.com/ignite/portfolio-api/internal/domain"
)

// Repository defines the data access contract for projects.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create persists p, assigning ID, CreatedAt and UpdatedAt when unset.
	Create(ctx context.Context, p *domain.Project) error

	// ListByRecency returns every project ordered by created_at DESC.
	ListByRecency(ctx context.Context) ([]domain.Project, error)

	// Get returns a single project. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Project, error)

	// Delete removes a project and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Ping checks the backing store is reachable.
	Ping(ctx context.Context) error
}

// ImageStore holds project images.
type ImageStore interface {
	Store(ctx context.Context, data []byte, folder string) (string, error)
	Remove(ctx context.Context, url string) bool
}
