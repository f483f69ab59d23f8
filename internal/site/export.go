// Package site writes the static portfolio: an index.html rendered with the
// initial (empty filter) view, its stylesheet and script, and projects.json.
// All asset references are relative so the output can be hosted under any
// path prefix.
package site

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
	"github.com/kurihiro0119/github-portfolio/internal/portfolio"
)

const (
	IndexFile    = "index.html"
	ProjectsFile = "projects.json"
)

//go:embed templates/index.html.tmpl
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

var indexTemplate = template.Must(
	template.New("index.html.tmpl").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/index.html.tmpl"),
)

// Options customizes the exported page
type Options struct {
	// Title defaults to "<owner>'s Portfolio"
	Title string
	// Now defaults to time.Now
	Now func() time.Time
}

type page struct {
	Title       string
	Owner       string
	GeneratedAt time.Time
	View        portfolio.View
	Projects    []pageProject
}

// pageProject is the published form of a project. Build status and failure
// reasons stay in storage and the preview API.
type pageProject struct {
	Name         string   `json:"name"`
	HTMLURL      string   `json:"html_url"`
	Title        string   `json:"title"`
	Technologies []string `json:"technologies"`
	Description  *string  `json:"description"`
	Links        []string `json:"links"`
}

func toPageProjects(projects []*domain.Project) []pageProject {
	out := make([]pageProject, 0, len(projects))
	for _, p := range projects {
		out = append(out, pageProject{
			Name:         p.Name,
			HTMLURL:      p.HTMLURL,
			Title:        p.Title,
			Technologies: p.Technologies,
			Description:  p.Description,
			Links:        p.Links,
		})
	}
	return out
}

// Export renders the portfolio of owner into dir, creating it when missing.
// Existing files with the same names are overwritten.
func Export(dir, owner string, projects []*domain.Project, opts Options) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = owner + "'s Portfolio"
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	published := toPageProjects(projects)

	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, page{
		Title:       title,
		Owner:       owner,
		GeneratedAt: now().UTC(),
		View:        portfolio.BuildView(projects, nil),
		Projects:    published,
	})
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", IndexFile, err)
	}
	if err := writeFile(dir, IndexFile, buf.Bytes()); err != nil {
		return err
	}

	data, err := json.MarshalIndent(published, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode projects: %w", err)
	}
	if err := writeFile(dir, ProjectsFile, append(data, '\n')); err != nil {
		return err
	}

	return copyAssets(dir)
}

func copyAssets(dir string) error {
	entries, err := fs.ReadDir(assetFS, "assets")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := assetFS.ReadFile("assets/" + entry.Name())
		if err != nil {
			return err
		}
		if err := writeFile(dir, entry.Name(), data); err != nil {
			return err
		}
	}
	return nil
}

// writeFile replaces name in dir through a temporary file so a preview
// server never serves a half-written page.
func writeFile(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
