// Package tags derives structured tags and a clean title from raw
// bookmark titles. Tags are encoded as a trailing block of #-prefixed
// tokens, e.g. "Example #news #tech".
package tags

import "strings"

// Parse splits a raw bookmark title into the clean title and its tags.
// Deterministic and side-effect free; an empty or missing title yields
// an empty title and an empty tag list.
func Parse(raw string) (string, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", []string{}
	}

	fields := strings.Fields(raw)

	// The tag block is the maximal run of #tokens at the end of the title.
	split := len(fields)
	for split > 0 {
		f := fields[split-1]
		if !strings.HasPrefix(f, "#") || len(f) < 2 {
			break
		}
		split--
	}

	title := strings.Join(fields[:split], " ")
	parsed := make([]string, 0, len(fields)-split)
	for _, f := range fields[split:] {
		tag := strings.TrimSpace(strings.TrimPrefix(f, "#"))
		if tag != "" {
			parsed = append(parsed, tag)
		}
	}

	return title, parsed
}

// Title returns the raw title with its tag block stripped and trimmed.
func Title(raw string) string {
	title, _ := Parse(raw)
	return title
}

// Tags returns the parsed tag tokens, empty if none are present.
func Tags(raw string) []string {
	_, parsed := Parse(raw)
	return parsed
}

// Block reconstructs the tag block for a tag list, empty for no tags.
func Block(tagList []string) string {
	if len(tagList) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tagList))
	for _, t := range tagList {
		parts = append(parts, "#"+t)
	}
	return strings.Join(parts, " ")
}
