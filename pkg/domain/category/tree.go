package category

import (
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// Tree is an in-memory index over the full category table. It is built
// once per table load and answers ancestor/descendant queries without
// repeated per-node traversal.
type Tree struct {
	nodes    map[string]*Category
	children map[string][]shared.ID
}

// NewTree builds a Tree from a category snapshot.
func NewTree(categories []*Category) *Tree {
	t := &Tree{
		nodes:    make(map[string]*Category, len(categories)),
		children: make(map[string][]shared.ID),
	}
	for _, c := range categories {
		t.nodes[c.ID.String()] = c
		if c.ParentID != nil {
			pk := c.ParentID.String()
			t.children[pk] = append(t.children[pk], c.ID)
		}
	}
	return t
}

// Get returns the category with the given ID.
func (t *Tree) Get(id shared.ID) (*Category, bool) {
	c, ok := t.nodes[id.String()]
	return c, ok
}

// Roots returns every category without a parent.
func (t *Tree) Roots() []*Category {
	var roots []*Category
	for _, c := range t.nodes {
		if c.ParentID == nil {
			roots = append(roots, c)
		}
	}
	return roots
}

// Ancestors returns the chain of parents from the node's direct parent
// up to its root, nearest first. Unknown IDs yield nil.
func (t *Tree) Ancestors(id shared.ID) []shared.ID {
	var out []shared.ID
	c, ok := t.nodes[id.String()]
	if !ok {
		return nil
	}
	// Bounded by node count to survive a corrupted parent cycle.
	for i := 0; c.ParentID != nil && i < len(t.nodes); i++ {
		out = append(out, *c.ParentID)
		parent, ok := t.nodes[c.ParentID.String()]
		if !ok {
			break
		}
		c = parent
	}
	return out
}

// Descendants returns every node in the subtree below the given node,
// breadth first, excluding the node itself.
func (t *Tree) Descendants(id shared.ID) []shared.ID {
	var out []shared.ID
	queue := append([]shared.ID(nil), t.children[id.String()]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, t.children[cur.String()]...)
	}
	return out
}

// Subtree returns the node plus all of its descendants. Used for
// cascade deletion of a category.
func (t *Tree) Subtree(id shared.ID) []shared.ID {
	if _, ok := t.nodes[id.String()]; !ok {
		return nil
	}
	return append([]shared.ID{id}, t.Descendants(id)...)
}

// ResolveAssignment computes the tag set that results from assigning
// newTag on top of current tags: any ancestor or descendant of newTag
// already present is removed, keeping at most one active tag per
// root-to-leaf path.
func (t *Tree) ResolveAssignment(current []shared.ID, newTag shared.ID) []shared.ID {
	excluded := make(map[string]bool)
	for _, id := range t.Ancestors(newTag) {
		excluded[id.String()] = true
	}
	for _, id := range t.Descendants(newTag) {
		excluded[id.String()] = true
	}

	out := make([]shared.ID, 0, len(current)+1)
	for _, id := range current {
		if excluded[id.String()] || id.Equals(newTag) {
			continue
		}
		out = append(out, id)
	}
	return append(out, newTag)
}
