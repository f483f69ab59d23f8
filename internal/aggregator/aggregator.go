package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/github-portfolio/internal/collector"
	"github.com/kurihiro0119/github-portfolio/internal/domain"
	apperrors "github.com/kurihiro0119/github-portfolio/internal/errors"
	"github.com/kurihiro0119/github-portfolio/internal/portfolio"
	"github.com/kurihiro0119/github-portfolio/internal/readme"
	"github.com/kurihiro0119/github-portfolio/internal/storage"
)

// Aggregator defines the interface for building and reading portfolio projects
type Aggregator interface {
	// Aggregate lists the user's repositories and turns each into a Project.
	// Only a listing failure is returned; README problems degrade single projects.
	Aggregate(ctx context.Context, user string) ([]*domain.Project, error)

	// Build runs Aggregate, stores the snapshot and records the build
	Build(ctx context.Context, user string) (*domain.Build, []*domain.Project, error)

	// GetProjects retrieves the stored snapshot
	GetProjects(ctx context.Context, user string) ([]*domain.Project, error)

	// GetView retrieves the stored snapshot partitioned by the selected technologies
	GetView(ctx context.Context, user string, techs []string) (*portfolio.View, error)

	// GetTechnologies retrieves the technology counts of the stored snapshot
	GetTechnologies(ctx context.Context, user string) ([]domain.TechnologyCount, error)

	// GetLatestBuild retrieves the most recent build record
	GetLatestBuild(ctx context.Context, user string) (*domain.Build, error)
}

// ProgressCallback is a callback function for reporting progress
type ProgressCallback func(repo string, progress float64)

// Options configures repository selection and progress reporting
type Options struct {
	IncludeForks    bool
	IncludeArchived bool
	OnProgress      ProgressCallback
}

// aggregator implements the Aggregator interface
type aggregator struct {
	collector collector.Collector
	storage   storage.Storage
	logger    *zap.Logger
	opts      Options
}

// NewAggregator creates a new aggregator. coll may be nil for read-only use.
func NewAggregator(coll collector.Collector, store storage.Storage, logger *zap.Logger, opts Options) Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &aggregator{
		collector: coll,
		storage:   store,
		logger:    logger,
		opts:      opts,
	}
}

// Aggregate fetches and parses every README concurrently and returns the
// projects in repository listing order.
func (a *aggregator) Aggregate(ctx context.Context, user string) ([]*domain.Project, error) {
	if a.collector == nil {
		return nil, apperrors.NewInternalError("aggregator has no collector", nil)
	}

	repos, err := a.collector.GetUserRepositories(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for %s: %w", user, err)
	}
	repos = a.selectRepositories(repos)

	a.logger.Info("Aggregating projects", zap.String("user", user), zap.Int("repositories", len(repos)))

	projects := make([]*domain.Project, len(repos))
	var mu sync.Mutex
	completed := 0

	var eg errgroup.Group
	for i, repo := range repos {
		eg.Go(func() error {
			projects[i] = a.buildProject(ctx, user, repo)

			if a.opts.OnProgress != nil {
				mu.Lock()
				completed++
				a.opts.OnProgress(repo.Name, float64(completed)/float64(len(repos)))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return projects, nil
}

// buildProject never fails: any README problem yields a degraded project
func (a *aggregator) buildProject(ctx context.Context, user string, repo *domain.Repository) *domain.Project {
	text, err := a.collector.GetReadme(ctx, user, repo.Name)
	if err != nil {
		a.logger.Warn("README unavailable, using repository defaults",
			zap.String("repo", repo.Name),
			zap.String("code", string(apperrors.CodeOf(err))),
			zap.Error(err))
		return domain.NewDegradedProject(repo, err.Error())
	}

	meta, err := readme.Extract(text, repo.Name)
	if err != nil {
		a.logger.Warn("README metadata invalid, using repository defaults",
			zap.String("repo", repo.Name),
			zap.Error(err))
		return domain.NewDegradedProject(repo, err.Error())
	}

	a.logger.Debug("README parsed",
		zap.String("repo", repo.Name),
		zap.String("source", string(meta.Source)),
		zap.Int("technologies", len(meta.Technologies)),
		zap.Int("links", len(meta.Links)))

	return domain.NewProject(repo, meta)
}

func (a *aggregator) selectRepositories(repos []*domain.Repository) []*domain.Repository {
	selected := make([]*domain.Repository, 0, len(repos))
	for _, repo := range repos {
		if repo.Fork && !a.opts.IncludeForks {
			continue
		}
		if repo.Archived && !a.opts.IncludeArchived {
			continue
		}
		selected = append(selected, repo)
	}
	return selected
}

// Build aggregates, stores the snapshot and records the outcome
func (a *aggregator) Build(ctx context.Context, user string) (*domain.Build, []*domain.Project, error) {
	build := &domain.Build{
		ID:        uuid.New().String(),
		Owner:     user,
		Status:    domain.BuildStatusInProgress,
		StartedAt: time.Now(),
	}
	if err := a.storage.SaveBuild(ctx, build); err != nil {
		return nil, nil, fmt.Errorf("failed to record build: %w", err)
	}

	projects, err := a.Aggregate(ctx, user)
	if err == nil {
		if saveErr := a.storage.SaveProjects(ctx, user, projects); saveErr != nil {
			err = fmt.Errorf("failed to save projects: %w", saveErr)
		}
	}

	finished := time.Now()
	build.FinishedAt = &finished
	if err != nil {
		build.Status = domain.BuildStatusFailed
		build.Error = err.Error()
		if saveErr := a.storage.SaveBuild(context.WithoutCancel(ctx), build); saveErr != nil {
			a.logger.Error("Failed to record build failure", zap.String("build", build.ID), zap.Error(saveErr))
		}
		return build, nil, err
	}

	build.Status = domain.BuildStatusCompleted
	build.ProjectCount = len(projects)
	for _, p := range projects {
		if p.Status == domain.ProjectStatusDegraded {
			build.DegradedCount++
		}
	}
	if err := a.storage.SaveBuild(ctx, build); err != nil {
		return build, projects, fmt.Errorf("failed to record build: %w", err)
	}

	a.logger.Info("Build completed",
		zap.String("build", build.ID),
		zap.String("user", user),
		zap.Int("projects", build.ProjectCount),
		zap.Int("degraded", build.DegradedCount),
		zap.Duration("took", finished.Sub(build.StartedAt)))

	return build, projects, nil
}

// GetProjects retrieves the stored snapshot; NOT_FOUND when the user was never built
func (a *aggregator) GetProjects(ctx context.Context, user string) ([]*domain.Project, error) {
	build, err := a.storage.GetLatestBuild(ctx, user)
	if err != nil {
		return nil, err
	}
	projects, err := a.storage.GetProjects(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 && build.Status != domain.BuildStatusCompleted {
		return nil, apperrors.NewNotFoundError("projects for " + user)
	}
	return projects, nil
}

// GetView retrieves the stored snapshot partitioned by techs
func (a *aggregator) GetView(ctx context.Context, user string, techs []string) (*portfolio.View, error) {
	projects, err := a.GetProjects(ctx, user)
	if err != nil {
		return nil, err
	}
	view := portfolio.BuildView(projects, portfolio.NewFilterState(techs...))
	return &view, nil
}

// GetTechnologies retrieves the technology counts of the stored snapshot
func (a *aggregator) GetTechnologies(ctx context.Context, user string) ([]domain.TechnologyCount, error) {
	projects, err := a.GetProjects(ctx, user)
	if err != nil {
		return nil, err
	}
	return portfolio.TechSet(projects), nil
}

// GetLatestBuild retrieves the most recent build record
func (a *aggregator) GetLatestBuild(ctx context.Context, user string) (*domain.Build, error) {
	return a.storage.GetLatestBuild(ctx, user)
}
