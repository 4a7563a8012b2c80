package exportfile

import (
	"fmt"

	"github.com/MrSnakeDoc/marque/internal/domain"
)

// Mapper converts an export into the domain tree.
type Mapper struct{}

// NewMapper creates a new export mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapTree converts the export roots into domain tree nodes. Node ids
// must be positive and unique across the whole export.
func (m *Mapper) MapTree(export *Export) ([]domain.TreeNode, error) {
	seen := make(map[int64]bool)

	var mapNodes func(nodes []Node, parentID int64) ([]domain.TreeNode, error)
	mapNodes = func(nodes []Node, parentID int64) ([]domain.TreeNode, error) {
		mapped := make([]domain.TreeNode, 0, len(nodes))
		for _, n := range nodes {
			if n.ID <= 0 {
				return nil, fmt.Errorf("node %q has no id", n.Title)
			}
			if seen[n.ID] {
				return nil, fmt.Errorf("duplicate node id %d", n.ID)
			}
			seen[n.ID] = true

			children, err := mapNodes(n.Children, n.ID)
			if err != nil {
				return nil, err
			}

			mapped = append(mapped, domain.TreeNode{
				ID:        n.ID,
				ParentID:  parentID,
				Title:     n.Title,
				URL:       n.URL,
				DateAdded: n.DateAdded,
				Children:  children,
			})
		}
		return mapped, nil
	}

	return mapNodes(export.Roots, 0)
}
