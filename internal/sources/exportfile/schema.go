// Package exportfile reads a bookmark-tree export from a YAML file and
// serves it as an external bookmark source. It stands in for the live
// extension host during offline runs and first-time imports.
package exportfile

// Node is one entry of the exported tree. Entries with a URL are
// bookmarks, entries without one are folders.
type Node struct {
	ID        int64  `yaml:"id"`
	Title     string `yaml:"title"`
	URL       string `yaml:"url,omitempty"`
	DateAdded int64  `yaml:"dateAdded,omitempty"`
	Children  []Node `yaml:"children,omitempty"`
}

// Export is the root structure of the export file.
type Export struct {
	ExportedAt string `yaml:"exportedAt,omitempty"`
	Roots      []Node `yaml:"roots"`
}
