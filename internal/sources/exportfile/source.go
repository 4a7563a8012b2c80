package exportfile

import (
	"context"

	"github.com/MrSnakeDoc/marque/internal/domain"
)

// Source serves the export file as an external bookmark tree. The file
// is re-read on every query so edits show up on the next pass.
type Source struct {
	loader *Loader
	mapper *Mapper
}

// NewSource creates a file-backed bookmark source.
func NewSource(filePath string) *Source {
	return &Source{
		loader: NewLoader(filePath),
		mapper: NewMapper(),
	}
}

// Tree returns the full exported hierarchy.
func (s *Source) Tree(_ context.Context) ([]domain.TreeNode, error) {
	export, err := s.loader.Load()
	if err != nil {
		return nil, err
	}
	return s.mapper.MapTree(export)
}

// Search returns the exported bookmarks whose URL matches exactly.
func (s *Source) Search(ctx context.Context, url string) ([]domain.TreeNode, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}

	var matches []domain.TreeNode
	var walk func(nodes []domain.TreeNode)
	walk = func(nodes []domain.TreeNode) {
		for _, n := range nodes {
			if !n.IsFolder() && n.URL == url {
				matches = append(matches, n)
			}
			walk(n.Children)
		}
	}
	walk(tree)

	return matches, nil
}
