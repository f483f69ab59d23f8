package readme

import (
	"bufio"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
)

const (
	frontMatterDelimiter = "---"
	maxLine              = 1 << 20
)

type frontMatter struct {
	Title        string         `yaml:"title"`
	Technologies technologyList `yaml:"technologies"`
	Links        []string       `yaml:"links"`
}

// technologyList accepts either a YAML sequence or a comma-separated string
type technologyList []string

func (l *technologyList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = strings.Split(node.Value, ",")
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: technologies must be a list or a comma-separated string", node.Line)
	}
}

// parseFrontMatter reads a leading "---" delimited YAML mapping.
// found is false when the README does not start with one; a leading
// horizontal rule followed by prose is not front matter.
func parseFrontMatter(text string) (meta domain.Metadata, found bool, err error) {
	block, ok := frontMatterBlock(text)
	if !ok {
		return domain.Metadata{}, false, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(block), &root); err != nil {
		return domain.Metadata{}, false, nil
	}
	if len(root.Content) == 0 || !hasKnownKey(root.Content[0]) {
		return domain.Metadata{}, false, nil
	}

	var fm frontMatter
	if err := root.Content[0].Decode(&fm); err != nil {
		return domain.Metadata{}, true, fmt.Errorf("invalid README front matter: %w", err)
	}

	return domain.Metadata{
		Title:        fm.Title,
		Technologies: fm.Technologies,
		Links:        fm.Links,
		Source:       domain.MetadataSourceFrontMatter,
	}, true, nil
}

// hasKnownKey reports whether node is a mapping with at least one metadata key
func hasKnownKey(node *yaml.Node) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "title", "technologies", "links":
			return true
		}
	}
	return false
}

func frontMatterBlock(text string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	if !scanner.Scan() || strings.TrimRight(scanner.Text(), " \t\r") != frontMatterDelimiter {
		return "", false
	}

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if trimmed := strings.TrimRight(line, " \t"); trimmed == frontMatterDelimiter || trimmed == "..." {
			return strings.Join(lines, "\n"), true
		}
		lines = append(lines, line)
	}
	return "", false
}

