package domain

// Repository represents a GitHub repository as returned by the listing endpoint
type Repository struct {
	Owner         string
	Name          string
	HTMLURL       string
	Description   *string // nil when the repository has no description
	DefaultBranch string
	Fork          bool
	Archived      bool
}
