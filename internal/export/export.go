// Package export renders a whole book as a single markdown document.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/liminalbooks/liminal/internal/project"
)

// FrontMatter is the YAML header of an exported book.
type FrontMatter struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Pages       []string  `yaml:"pages"`
	ExportedAt  time.Time `yaml:"exported_at"`
}

// Markdown concatenates pages in order behind a YAML front matter block.
// Pages are separated by a blank line and each ends with a newline.
func Markdown(meta project.Meta, pages []project.Page, exportedAt time.Time) ([]byte, error) {
	fm := FrontMatter{
		Title:       meta.Title,
		Description: meta.Description,
		Pages:       make([]string, 0, len(pages)),
		ExportedAt:  exportedAt.UTC(),
	}
	for _, p := range pages {
		fm.Pages = append(fm.Pages, p.Title)
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n")
	for _, p := range pages {
		buf.WriteString("\n")
		buf.WriteString(strings.TrimRight(p.Content, "\n"))
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// ParseFrontMatter reads the YAML header of an exported book.
func ParseFrontMatter(data []byte) (FrontMatter, error) {
	rest, ok := bytes.CutPrefix(data, []byte("---\n"))
	if !ok {
		return FrontMatter{}, fmt.Errorf("missing front matter")
	}
	header, _, ok := bytes.Cut(rest, []byte("\n---\n"))
	if !ok {
		return FrontMatter{}, fmt.Errorf("unterminated front matter")
	}
	var fm FrontMatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return FrontMatter{}, fmt.Errorf("decode front matter: %w", err)
	}
	return fm, nil
}
