package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
	apperrors "github.com/kurihiro0119/github-portfolio/internal/errors"
	"github.com/kurihiro0119/github-portfolio/internal/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "portfolio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string {
	return &s
}

func TestSaveProjectsKeepsOrderAndReplaces(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	first := []*domain.Project{
		{
			Name:         "zeta",
			HTMLURL:      "https://github.com/alice/zeta",
			Title:        "Zeta",
			Technologies: []string{"Go", "SQLite"},
			Description:  strPtr("last letter"),
			Links:        []string{"https://github.com/alice/zeta", "https://zeta.dev"},
			Status:       domain.ProjectStatusComplete,
		},
		{
			Name:           "alpha",
			HTMLURL:        "https://github.com/alice/alpha",
			Title:          "alpha",
			Technologies:   []string{},
			Links:          []string{"https://github.com/alice/alpha"},
			Status:         domain.ProjectStatusDegraded,
			DegradedReason: "NOT_FOUND: README for alice/alpha not found",
		},
	}
	require.NoError(t, store.SaveProjects(ctx, "alice", first))
	require.NoError(t, store.SaveProjects(ctx, "bob", first[:1]))

	got, err := store.GetProjects(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	require.NoError(t, store.SaveProjects(ctx, "alice", first[1:]))
	got, err = store.GetProjects(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alpha", got[0].Name)

	got, err = store.GetProjects(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGetProjectsUnknownOwner(t *testing.T) {
	store := newTestStorage(t)

	got, err := store.GetProjects(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuilds(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.GetLatestBuild(ctx, "alice")
	assert.True(t, apperrors.IsNotFound(err))

	started := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	older := &domain.Build{ID: "b1", Owner: "alice", Status: domain.BuildStatusFailed, Error: "boom", StartedAt: started.Add(-time.Hour)}
	build := &domain.Build{ID: "b2", Owner: "alice", Status: domain.BuildStatusInProgress, StartedAt: started}
	require.NoError(t, store.SaveBuild(ctx, older))
	require.NoError(t, store.SaveBuild(ctx, build))

	latest, err := store.GetLatestBuild(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "b2", latest.ID)
	assert.Equal(t, domain.BuildStatusInProgress, latest.Status)
	assert.Nil(t, latest.FinishedAt)

	finished := started.Add(30 * time.Second)
	build.Status = domain.BuildStatusCompleted
	build.ProjectCount = 4
	build.DegradedCount = 1
	build.FinishedAt = &finished
	require.NoError(t, store.SaveBuild(ctx, build))

	latest, err = store.GetLatestBuild(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.BuildStatusCompleted, latest.Status)
	assert.Equal(t, 4, latest.ProjectCount)
	assert.Equal(t, 1, latest.DegradedCount)
	require.NotNil(t, latest.FinishedAt)
	assert.True(t, finished.Equal(*latest.FinishedAt))
	assert.True(t, started.Equal(latest.StartedAt))
}
