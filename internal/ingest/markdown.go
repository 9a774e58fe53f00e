package ingest

import (
	"path/filepath"
	"strings"
)

// DeriveTitle picks a title for a document: the first markdown heading
// when the file is markdown, otherwise a cleaned-up filename. With no
// path at all it falls back from heading to "Untitled".
func DeriveTitle(path, content string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if path == "" || ext == ".md" || ext == ".markdown" {
		if title, ok := firstHeading(content); ok {
			return title
		}
	}
	if path == "" {
		return "Untitled"
	}
	return titleFromFilename(path)
}

// firstHeading returns the text of the first ATX heading in a markdown
// document.
func firstHeading(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		if _, title, ok := parseHeading(line); ok && title != "" {
			return title, true
		}
	}
	return "", false
}

// parseHeading parses an ATX markdown heading line, returning its level
// and title.
func parseHeading(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if !strings.HasPrefix(trimmed, "#") {
		return 0, "", false
	}

	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 {
		return 0, "", false
	}
	if level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, "", false
	}

	title := strings.TrimSpace(trimmed[level:])
	return level, title, true
}

// titleFromFilename turns "solar_report-2024.md" into "solar report 2024".
func titleFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.Join(strings.Fields(base), " ")
}
