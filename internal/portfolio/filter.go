// Package portfolio derives the technology index and the filtered project
// listings shown on the portfolio page.
package portfolio

import (
	"github.com/kurihiro0119/github-portfolio/internal/domain"
)

// FilterState is the set of selected technologies. The zero value is the
// initial state: nothing selected, every project shown.
type FilterState struct {
	selected map[string]struct{}
}

// NewFilterState returns a state with the given technologies selected
func NewFilterState(techs ...string) *FilterState {
	s := &FilterState{}
	for _, tech := range techs {
		if !s.Has(tech) {
			s.Toggle(tech)
		}
	}
	return s
}

// Toggle selects tech when it is not selected and deselects it otherwise
func (s *FilterState) Toggle(tech string) {
	if s.selected == nil {
		s.selected = make(map[string]struct{})
	}
	if _, ok := s.selected[tech]; ok {
		delete(s.selected, tech)
		return
	}
	s.selected[tech] = struct{}{}
}

// Has reports whether tech is selected
func (s *FilterState) Has(tech string) bool {
	if s == nil {
		return false
	}
	_, ok := s.selected[tech]
	return ok
}

// Empty reports whether no technology is selected
func (s *FilterState) Empty() bool {
	return s == nil || len(s.selected) == 0
}

// Selected returns the selected technologies sorted case-insensitively
func (s *FilterState) Selected() []string {
	out := make([]string, 0, s.Len())
	if s != nil {
		for tech := range s.selected {
			out = append(out, tech)
		}
	}
	sortFold(out, func(tech string) string { return tech })
	return out
}

// Len returns the number of selected technologies
func (s *FilterState) Len() int {
	if s == nil {
		return 0
	}
	return len(s.selected)
}

// Matches reports whether the project lists any selected technology
func (s *FilterState) Matches(p *domain.Project) bool {
	if s.Empty() {
		return false
	}
	for _, tech := range p.Technologies {
		if s.Has(tech) {
			return true
		}
	}
	return false
}
