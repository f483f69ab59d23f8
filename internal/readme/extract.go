// Package readme extracts portfolio metadata (title, technologies, links) from README text.
//
// Two conventions are understood. The preferred one is a YAML front matter
// block at the very top of the README:
//
//	---
//	title: Realtime Chat
//	technologies: [Go, WebSocket, Redis]
//	links:
//	  - https://chat.example.com
//	---
//
// READMEs without front matter are scanned for the legacy HTML markers:
// an element with id "tjidtitle", an element with id "tjidtechs" holding a
// comma-separated list, and list items under an element with id "tjidlinks".
package readme

import (
	"strings"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
)

// Extract parses README text into metadata for the repository named repoName.
// Missing fields fall back to defaults: the repository name for the title and
// no technologies or links. An error is returned only for a front matter block
// whose fields have the wrong shape.
func Extract(text, repoName string) (domain.Metadata, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	meta, found, err := parseFrontMatter(text)
	if err != nil {
		return domain.Metadata{}, err
	}
	if !found {
		meta, err = parseMarkers(text)
		if err != nil {
			return domain.Metadata{}, err
		}
	}

	meta.Title = collapseSpace(meta.Title)
	if meta.Title == "" {
		meta.Title = repoName
	}
	meta.Technologies = normalizeTechnologies(meta.Technologies)
	meta.Links = normalizeLinks(meta.Links)

	return meta, nil
}

// SplitTechnologies splits a comma-separated technology list
func SplitTechnologies(s string) []string {
	return normalizeTechnologies(strings.Split(s, ","))
}

// normalizeTechnologies trims entries, drops blanks and keeps the first of any duplicates
func normalizeTechnologies(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func normalizeLinks(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
