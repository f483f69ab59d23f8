package collector

import (
	"context"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
)

// Collector defines the interface for reading portfolio sources from GitHub
type Collector interface {
	// GetUserRepositories retrieves all repositories owned by a user, in listing order.
	// Any error is fatal for a build.
	GetUserRepositories(ctx context.Context, user string) ([]*domain.Repository, error)

	// GetReadme retrieves the raw README text of a repository.
	// Every failure is returned as an *errors.AppError (NOT_FOUND, RATE_LIMITED or UNAVAILABLE).
	GetReadme(ctx context.Context, user, repo string) (string, error)
}
