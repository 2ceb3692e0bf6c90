package project

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// ImportFolder creates a project from every *.md file directly inside dir,
// ordered by file name.
func (s *Store) ImportFolder(dir, title, description string) (Meta, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Meta{}, fmt.Errorf("invalid folder path %q", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Meta{}, fmt.Errorf("read folder: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && filepath.Ext(entry.Name()) == ".md" {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return Meta{}, ErrNoMarkdown
	}
	slices.Sort(files)

	meta, err := s.Create(title, description)
	if err != nil {
		return Meta{}, err
	}

	for i, file := range files {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return Meta{}, fmt.Errorf("read file %q: %w", file, err)
		}
		content := string(data)

		pageTitle, ok := HeadingTitle(content)
		if !ok {
			pageTitle = titleFromStem(strings.TrimSuffix(file, ".md"))
		}

		name := PageName(i+1, pageTitle)
		if err := s.WritePage(meta.ID, name, content); err != nil {
			return Meta{}, err
		}
		meta.PageOrder = append(meta.PageOrder, name)
	}

	meta.UpdatedAt = s.now()
	if err := s.SaveMeta(meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// titleFromStem turns "03-error_handling" into "error handling".
func titleFromStem(stem string) string {
	cleaned := strings.TrimLeftFunc(stem, func(r rune) bool {
		return unicode.IsDigit(r) || r == '-' || r == '_'
	})
	cleaned = strings.NewReplacer("-", " ", "_", " ").Replace(cleaned)
	if cleaned == "" {
		return stem
	}
	return cleaned
}
