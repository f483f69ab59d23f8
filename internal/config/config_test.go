package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"GITHUB_USER", "GITHUB_TOKEN", "README_BRANCH", "STORAGE_TYPE", "LIST_RETRIES", "INCLUDE_FORKS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultUser, cfg.GitHubUser)
	assert.Empty(t, cfg.GitHubToken)
	assert.Equal(t, "main", cfg.ReadmeBranch)
	assert.Equal(t, "README.md", cfg.ReadmePath)
	assert.Equal(t, 2, cfg.ListRetries)
	assert.True(t, cfg.IncludeForks)
	assert.Equal(t, "sqlite", cfg.StorageType)
	assert.NoError(t, cfg.Validate())
}

func TestLoadInvalidNumber(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LIST_RETRIES", "many")

	_, err := Load()

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "LIST_RETRIES", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		cfg   Config
		field string
	}{
		{
			name:  "missing user",
			cfg:   Config{ReadmeBranch: "main", ReadmePath: "README.md", StorageType: "sqlite"},
			field: "GITHUB_USER",
		},
		{
			name:  "unknown storage",
			cfg:   Config{GitHubUser: "u", ReadmeBranch: "main", ReadmePath: "README.md", StorageType: "mongo"},
			field: "STORAGE_TYPE",
		},
		{
			name:  "postgres without url",
			cfg:   Config{GitHubUser: "u", ReadmeBranch: "main", ReadmePath: "README.md", StorageType: "postgres"},
			field: "POSTGRES_URL",
		},
		{
			name:  "negative retries",
			cfg:   Config{GitHubUser: "u", ReadmeBranch: "main", ReadmePath: "README.md", StorageType: "sqlite", ListRetries: -1},
			field: "LIST_RETRIES",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestValidateStorage(t *testing.T) {
	cfg := Config{StorageType: "sqlite"}
	assert.NoError(t, cfg.ValidateStorage(), "the preview server needs no GitHub user")

	cfg = Config{StorageType: "postgres"}
	var cfgErr *ConfigError
	require.ErrorAs(t, cfg.ValidateStorage(), &cfgErr)
	assert.Equal(t, "POSTGRES_URL", cfgErr.Field)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"SITE_TITLE", "README_BRANCH"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("GITHUB_USER", "octocat")

	path := filepath.Join(dir, "portfolio.env")
	require.NoError(t, os.WriteFile(path, []byte("SITE_TITLE=\"Octo's Work\"\nREADME_BRANCH=master\nGITHUB_USER=ignored\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Octo's Work", cfg.SiteTitle)
	assert.Equal(t, "master", cfg.ReadmeBranch)
	assert.Equal(t, "octocat", cfg.GitHubUser)

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}
