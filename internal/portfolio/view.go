package portfolio

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
)

const (
	HeadingAll   = "All Projects"
	HeadingOther = "Other Projects"
)

// View is everything the portfolio page shows for one filter state
type View struct {
	Technologies  []domain.TechnologyCount `json:"technologies"`
	Selected      []string                 `json:"selected"`
	ShowFiltered  bool                     `json:"show_filtered"`
	Filtered      []*domain.Project        `json:"filtered"`
	OthersHeading string                   `json:"others_heading"`
	Others        []*domain.Project        `json:"others"`
}

// BuildView derives the page content for projects under state
func BuildView(projects []*domain.Project, state *FilterState) View {
	techs := TechSet(projects)
	for i := range techs {
		techs[i].Selected = state.Has(techs[i].Name)
	}

	heading := HeadingAll
	if !state.Empty() {
		heading = HeadingOther
	}

	return View{
		Technologies:  techs,
		Selected:      state.Selected(),
		ShowFiltered:  !state.Empty(),
		Filtered:      Partition(projects, state, true),
		OthersHeading: heading,
		Others:        Partition(projects, state, false),
	}
}

// TechSet returns the distinct technologies across projects, sorted
// case-insensitively, each with the number of projects listing it.
func TechSet(projects []*domain.Project) []domain.TechnologyCount {
	counts := make(map[string]int)
	for _, p := range projects {
		seen := make(map[string]bool, len(p.Technologies))
		for _, tech := range p.Technologies {
			if seen[tech] {
				continue
			}
			seen[tech] = true
			counts[tech]++
		}
	}

	out := make([]domain.TechnologyCount, 0, len(counts))
	for tech, n := range counts {
		out = append(out, domain.TechnologyCount{Name: tech, Count: n})
	}
	sortFold(out, func(tc domain.TechnologyCount) string { return tc.Name })
	return out
}

// Partition returns the projects for which state.Matches equals matching,
// sorted case-insensitively by title. With an empty state nothing matches,
// so the non-matching partition is the whole list.
func Partition(projects []*domain.Project, state *FilterState, matching bool) []*domain.Project {
	out := make([]*domain.Project, 0, len(projects))
	for _, p := range projects {
		if state.Matches(p) == matching {
			out = append(out, p)
		}
	}
	sortFold(out, func(p *domain.Project) string { return p.Title })
	return out
}

// sortFold sorts items case-insensitively by key, breaking ties by the raw
// key and then by input position.
func sortFold[T any](items []T, key func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		ka, kb := key(a), key(b)
		return cmp.Or(
			cmp.Compare(strings.ToLower(ka), strings.ToLower(kb)),
			cmp.Compare(ka, kb),
		)
	})
}
