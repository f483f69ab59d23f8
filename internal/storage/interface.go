package storage

import (
	"context"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
)

// Storage is the abstract interface for the persistence layer
type Storage interface {
	// Project snapshot operations. SaveProjects replaces the owner's previous
	// snapshot and keeps the given order.
	SaveProjects(ctx context.Context, owner string, projects []*domain.Project) error
	GetProjects(ctx context.Context, owner string) ([]*domain.Project, error)

	// Build operations. SaveBuild inserts or updates by ID.
	SaveBuild(ctx context.Context, build *domain.Build) error
	GetLatestBuild(ctx context.Context, owner string) (*domain.Build, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
