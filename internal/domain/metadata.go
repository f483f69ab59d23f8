package domain

// MetadataSource tells which README convention produced the metadata
type MetadataSource string

const (
	MetadataSourceFrontMatter MetadataSource = "front_matter"
	MetadataSourceMarkers     MetadataSource = "markers"
	MetadataSourceNone        MetadataSource = "none"
)

// Metadata holds the fields extracted from a README
type Metadata struct {
	Title        string
	Technologies []string
	Links        []string // extra links, without the repository URL
	Source       MetadataSource
}

// TechnologyCount is a distinct technology and the number of projects listing it
type TechnologyCount struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}
