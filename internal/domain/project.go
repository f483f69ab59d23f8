package domain

import "strings"

// ProjectStatus reports whether a project was built from its README
type ProjectStatus string

const (
	ProjectStatusComplete ProjectStatus = "complete"
	ProjectStatusDegraded ProjectStatus = "degraded"
)

// Project is one portfolio entry derived from a repository.
// Name is the identity and is unique within one owner's repository list.
type Project struct {
	Name           string        `json:"name"`
	HTMLURL        string        `json:"html_url"`
	Title          string        `json:"title"`
	Technologies   []string      `json:"technologies"`
	Description    *string       `json:"description"`
	Links          []string      `json:"links"`
	Status         ProjectStatus `json:"status"`
	DegradedReason string        `json:"degraded_reason,omitempty"`
}

// NewProject builds a complete project from a repository and its README metadata.
// The repository URL is always the first link.
func NewProject(repo *Repository, meta Metadata) *Project {
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = repo.Name
	}

	links := make([]string, 0, len(meta.Links)+1)
	links = append(links, repo.HTMLURL)
	links = append(links, meta.Links...)

	technologies := meta.Technologies
	if technologies == nil {
		technologies = []string{}
	}

	return &Project{
		Name:         repo.Name,
		HTMLURL:      repo.HTMLURL,
		Title:        title,
		Technologies: technologies,
		Description:  repo.Description,
		Links:        links,
		Status:       ProjectStatusComplete,
	}
}

// NewDegradedProject builds a project from repository fields only.
func NewDegradedProject(repo *Repository, reason string) *Project {
	return &Project{
		Name:           repo.Name,
		HTMLURL:        repo.HTMLURL,
		Title:          repo.Name,
		Technologies:   []string{},
		Description:    repo.Description,
		Links:          []string{repo.HTMLURL},
		Status:         ProjectStatusDegraded,
		DegradedReason: reason,
	}
}

// HasTechnology reports whether the project lists tech (exact match)
func (p *Project) HasTechnology(tech string) bool {
	for _, t := range p.Technologies {
		if t == tech {
			return true
		}
	}
	return false
}

// DescriptionText returns the description or an empty string
func (p *Project) DescriptionText() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}
