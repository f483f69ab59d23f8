package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
	"github.com/kurihiro0119/github-portfolio/internal/portfolio"
)

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"name":"shop","html_url":"https://github.com/alice/shop","description":"storefront"},
			{"name":"notes","html_url":"https://github.com/alice/notes","description":null},
			{"name":"api","html_url":"https://github.com/alice/api","description":"orders service"}
		]`)
	})
	mux.HandleFunc("/raw/alice/shop/main/README.md", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "---\ntitle: Shop Front\ntechnologies: Vue, TypeScript\n---\n# shop\n")
	})
	mux.HandleFunc("/raw/alice/api/main/README.md", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, `<h1 id="tjidtitle">Orders API</h1>
<p id="tjidtechs">Go, PostgreSQL</p>
<ul id="tjidlinks"><li>https://api.example.com</li></ul>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	srv := fakeGitHub(t)

	env := map[string]string{
		"GITHUB_USER":    "alice",
		"GITHUB_TOKEN":   "",
		"GITHUB_API_URL": srv.URL + "/api/",
		"GITHUB_RAW_URL": srv.URL + "/raw/",
		"README_BRANCH":  "main",
		"README_PATH":    "README.md",
		"STORAGE_TYPE":   "sqlite",
		"SQLITE_PATH":    filepath.Join(dir, "portfolio.db"),
		"OUTPUT_DIR":     filepath.Join(dir, "out"),
		"SITE_TITLE":     "",
		"LOG_LEVEL":      "error",
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildThenList(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, "build", "--json")
	require.NoError(t, err)

	var build domain.Build
	require.NoError(t, json.Unmarshal([]byte(out), &build))
	assert.Equal(t, domain.BuildStatusCompleted, build.Status)
	assert.Equal(t, 3, build.ProjectCount)
	assert.Equal(t, 1, build.DegradedCount)

	assert.FileExists(t, filepath.Join(dir, "out", "index.html"))
	assert.FileExists(t, filepath.Join(dir, "out", "projects.json"))

	out, err = execute(t, "list", "--json", "--tech", "Go,Vue", "--tech", "Go")
	require.NoError(t, err)

	var view portfolio.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.True(t, view.ShowFiltered)
	require.Len(t, view.Filtered, 2)
	assert.Equal(t, "Orders API", view.Filtered[0].Title)
	assert.Equal(t, []string{"https://github.com/alice/api", "https://api.example.com"}, view.Filtered[0].Links)
	assert.Equal(t, "Shop Front", view.Filtered[1].Title)
	assert.Equal(t, "Other Projects", view.OthersHeading)
	require.Len(t, view.Others, 1)
	assert.Equal(t, "notes", view.Others[0].Title)
	assert.Equal(t, []string{}, view.Others[0].Technologies)

	out, err = execute(t, "techs", "--json")
	require.NoError(t, err)

	var techs []domain.TechnologyCount
	require.NoError(t, json.Unmarshal([]byte(out), &techs))
	names := []string{}
	for _, tc := range techs {
		names = append(names, tc.Name)
	}
	assert.Equal(t, []string{"Go", "PostgreSQL", "TypeScript", "Vue"}, names)
}

func TestListTable(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "build")
	require.NoError(t, err)

	out, err := execute(t, "list", "--tech", "Rust")
	require.NoError(t, err)
	assert.Contains(t, out, "Filtered Projects (0): Rust")
	assert.Contains(t, out, "No projects match the selected technology.")
	assert.Contains(t, out, "Other Projects (3)")
	assert.Contains(t, out, "Orders API")

	out, err = execute(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Filtered Projects")
	assert.Contains(t, out, "All Projects (3)")
}

func TestListBeforeBuild(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "list", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")
}

func TestBuildOutputFlag(t *testing.T) {
	dir := setupEnv(t)
	target := filepath.Join(dir, "public")

	_, err := execute(t, "build", "alice", "-o", target)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(target, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "alice&#39;s Portfolio")
}
