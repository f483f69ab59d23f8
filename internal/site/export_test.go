package site_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
	"github.com/kurihiro0119/github-portfolio/internal/site"
)

func strPtr(s string) *string {
	return &s
}

func sampleProjects() []*domain.Project {
	return []*domain.Project{
		{
			Name:         "zeta",
			HTMLURL:      "https://github.com/alice/zeta",
			Title:        "zeta board",
			Technologies: []string{"react", "Go"},
			Description:  strPtr("Kanban </script><b>board</b>"),
			Links:        []string{"https://github.com/alice/zeta", "https://zeta.dev"},
			Status:       domain.ProjectStatusComplete,
		},
		{
			Name:           "Alpha",
			HTMLURL:        "https://github.com/alice/Alpha",
			Title:          "Alpha",
			Technologies:   []string{},
			Links:          []string{"https://github.com/alice/Alpha"},
			Status:         domain.ProjectStatusDegraded,
			DegradedReason: "NOT_FOUND: README for alice/Alpha not found",
		},
		{
			Name:         "mid",
			HTMLURL:      "https://github.com/alice/mid",
			Title:        "Mid",
			Technologies: []string{"Go"},
			Links:        []string{"https://github.com/alice/mid", "javascript:alert(1)"},
			Status:       domain.ProjectStatusComplete,
		},
	}
}

func export(t *testing.T, projects []*domain.Project, opts site.Options) (string, *html.Node) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, site.Export(dir, "alice", projects, opts))

	f, err := os.Open(filepath.Join(dir, site.IndexFile))
	require.NoError(t, err)
	defer f.Close()

	doc, err := html.Parse(f)
	require.NoError(t, err)
	return dir, doc
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func collect(n *html.Node, tag string, out *[]*html.Node) {
	if n.Type == html.ElementNode && n.Data == tag {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, tag, out)
	}
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func texts(n *html.Node, tag string) []string {
	var nodes []*html.Node
	collect(n, tag, &nodes)
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, text(node))
	}
	return out
}

func TestExportInitialView(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	dir, doc := export(t, sampleProjects(), site.Options{Now: func() time.Time { return now }})

	assert.Equal(t, []string{"alice's Portfolio"}, texts(doc, "h1"))

	buttons := findByID(doc, "buttons-filter")
	require.NotNil(t, buttons)
	assert.Equal(t, []string{"Go (2)", "react (1)"}, texts(buttons, "button"))

	filtered := findByID(doc, "filtered-projects")
	require.NotNil(t, filtered)
	_, hidden := attr(filtered, "hidden")
	assert.True(t, hidden)

	others := findByID(doc, "other-projects")
	require.NotNil(t, others)
	assert.Equal(t, []string{"All Projects (3)"}, texts(others, "h2"))
	assert.Equal(t, []string{"Alpha", "Mid", "zeta board"}, texts(others, "h3"))

	// descriptions are escaped text, never markup
	var bolds []*html.Node
	collect(others, "b", &bolds)
	assert.Empty(t, bolds)
	assert.Contains(t, texts(others, "p"), "Kanban </script><b>board</b>")
	assert.Contains(t, texts(others, "p"), "Technologies: react, Go")

	var anchors []*html.Node
	collect(others, "a", &anchors)
	hrefs := []string{}
	for _, a := range anchors {
		href, _ := attr(a, "href")
		hrefs = append(hrefs, href)
	}
	assert.Contains(t, hrefs, "https://zeta.dev")
	assert.NotContains(t, hrefs, "javascript:alert(1)")

	footer := texts(doc, "footer")
	require.Len(t, footer, 1)
	assert.Contains(t, footer[0], "2024-03-01 12:00 UTC")

	for _, name := range []string{"portfolio.css", "portfolio.js", site.ProjectsFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestExportEmbedsProjects(t *testing.T) {
	projects := sampleProjects()
	dir, doc := export(t, projects, site.Options{Title: "  Jonathan Tambun's Portfolio "})

	assert.Equal(t, []string{"Jonathan Tambun's Portfolio"}, texts(doc, "title"))

	script := findByID(doc, "projects-data")
	require.NotNil(t, script)
	data, err := os.ReadFile(filepath.Join(dir, site.ProjectsFile))
	require.NoError(t, err)

	// build status stays out of the published site
	published := sampleProjects()
	for _, p := range published {
		p.Status = ""
		p.DegradedReason = ""
	}

	for _, raw := range []string{script.FirstChild.Data, string(data)} {
		var decoded []*domain.Project
		require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
		assert.Equal(t, published, decoded)

		var fields []map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &fields))
		for _, f := range fields {
			assert.NotContains(t, f, "status")
			assert.NotContains(t, f, "degraded_reason")
		}
	}

	index, err := os.ReadFile(filepath.Join(dir, site.IndexFile))
	require.NoError(t, err)
	assert.NotContains(t, string(index), "README for alice/Alpha")
	assert.NotContains(t, string(index), "degraded")
	assert.NotContains(t, string(data), "README for alice/Alpha")
}

func TestExportUsesRelativeAssets(t *testing.T) {
	_, doc := export(t, sampleProjects(), site.Options{})

	var links, scripts []*html.Node
	collect(doc, "link", &links)
	collect(doc, "script", &scripts)

	for _, n := range append(links, scripts...) {
		for _, key := range []string{"href", "src"} {
			if v, ok := attr(n, key); ok {
				assert.False(t, strings.HasPrefix(v, "/"), v)
				assert.NotContains(t, v, "://", v)
			}
		}
	}
}

func TestExportNoProjects(t *testing.T) {
	dir, doc := export(t, nil, site.Options{})

	assert.Equal(t, []string{"All Projects (0)"}, texts(findByID(doc, "other-projects"), "h2"))

	data, err := os.ReadFile(filepath.Join(dir, site.ProjectsFile))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestExportOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, site.Export(dir, "alice", sampleProjects(), site.Options{}))
	require.NoError(t, site.Export(dir, "alice", sampleProjects()[:1], site.Options{}))

	data, err := os.ReadFile(filepath.Join(dir, site.ProjectsFile))
	require.NoError(t, err)
	var written []*domain.Project
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Len(t, written, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "leftover temp file %s", e.Name())
	}
}
