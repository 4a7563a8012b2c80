package tags

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTitle string
		wantTags  []string
	}{
		{
			name:      "title with two tags",
			raw:       "Example #news #tech",
			wantTitle: "Example",
			wantTags:  []string{"news", "tech"},
		},
		{
			name:      "no tags",
			raw:       "Plain title",
			wantTitle: "Plain title",
			wantTags:  []string{},
		},
		{
			name:      "empty title",
			raw:       "",
			wantTitle: "",
			wantTags:  []string{},
		},
		{
			name:      "whitespace only",
			raw:       "   ",
			wantTitle: "",
			wantTags:  []string{},
		},
		{
			name:      "tags only",
			raw:       "#go #redis",
			wantTitle: "",
			wantTags:  []string{"go", "redis"},
		},
		{
			name:      "hash inside title is not a tag block",
			raw:       "C# in depth #programming",
			wantTitle: "C# in depth",
			wantTags:  []string{"programming"},
		},
		{
			name:      "bare hash terminates the block",
			raw:       "Title # #tag",
			wantTitle: "Title #",
			wantTags:  []string{"tag"},
		},
		{
			name:      "extra whitespace is normalized",
			raw:       "  Example   #news  ",
			wantTitle: "Example",
			wantTags:  []string{"news"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, tagList := Parse(tt.raw)
			if title != tt.wantTitle {
				t.Errorf("Parse(%q) title = %q, want %q", tt.raw, title, tt.wantTitle)
			}
			if len(tagList) != len(tt.wantTags) {
				t.Fatalf("Parse(%q) tags = %v, want %v", tt.raw, tagList, tt.wantTags)
			}
			for i, tag := range tagList {
				if tag != tt.wantTags[i] {
					t.Errorf("Parse(%q) tags[%d] = %q, want %q", tt.raw, i, tag, tt.wantTags[i])
				}
			}
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	raw := "Example #news #tech"
	t1, tags1 := Parse(raw)
	t2, tags2 := Parse(raw)
	if t1 != t2 || strings.Join(tags1, ",") != strings.Join(tags2, ",") {
		t.Errorf("Parse is not deterministic: (%q,%v) vs (%q,%v)", t1, tags1, t2, tags2)
	}
}

// Titles carrying a valid tag block must partition losslessly: joining
// the clean title and the reconstructed block recovers the raw string.
func TestPartitionIsLossless(t *testing.T) {
	raws := []string{
		"Example #news #tech",
		"Go concurrency patterns #go",
		"#solo",
		"No tags at all",
	}

	for _, raw := range raws {
		title, tagList := Parse(raw)
		rebuilt := strings.TrimSpace(title + " " + Block(tagList))
		if rebuilt != raw {
			t.Errorf("partition of %q lost content: rebuilt %q", raw, rebuilt)
		}
	}
}
