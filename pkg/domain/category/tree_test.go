package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// buildFixture returns a tree:
//
//	infra
//	├── cloud
//	│   ├── aws
//	│   └── gcp
//	└── onprem
//	web
func buildFixture(t *testing.T) (*Tree, map[string]shared.ID) {
	t.Helper()

	ids := map[string]shared.ID{}
	mk := func(name string, parent string) *Category {
		var pid *shared.ID
		if parent != "" {
			p := ids[parent]
			pid = &p
		}
		c, err := New(pid, name, "")
		require.NoError(t, err)
		ids[name] = c.ID
		return c
	}

	cats := []*Category{
		mk("infra", ""),
		mk("cloud", "infra"),
		mk("aws", "cloud"),
		mk("gcp", "cloud"),
		mk("onprem", "infra"),
		mk("web", ""),
	}
	return NewTree(cats), ids
}

func TestAncestors(t *testing.T) {
	tree, ids := buildFixture(t)

	anc := tree.Ancestors(ids["aws"])
	require.Len(t, anc, 2)
	assert.True(t, anc[0].Equals(ids["cloud"]))
	assert.True(t, anc[1].Equals(ids["infra"]))

	assert.Empty(t, tree.Ancestors(ids["web"]))
	assert.Nil(t, tree.Ancestors(shared.NewID()))
}

func TestDescendants(t *testing.T) {
	tree, ids := buildFixture(t)

	desc := tree.Descendants(ids["infra"])
	assert.Len(t, desc, 4)

	assert.Empty(t, tree.Descendants(ids["aws"]))
}

func TestSubtreeIncludesSelf(t *testing.T) {
	tree, ids := buildFixture(t)

	sub := tree.Subtree(ids["cloud"])
	require.Len(t, sub, 3)
	assert.True(t, sub[0].Equals(ids["cloud"]))
}

func TestResolveAssignmentRemovesAncestor(t *testing.T) {
	tree, ids := buildFixture(t)

	// An entity tagged "infra" that gets tagged "aws" must lose "infra".
	tags := tree.ResolveAssignment([]shared.ID{ids["infra"], ids["web"]}, ids["aws"])
	require.Len(t, tags, 2)
	assert.True(t, tags[0].Equals(ids["web"]))
	assert.True(t, tags[1].Equals(ids["aws"]))
}

func TestResolveAssignmentRemovesDescendants(t *testing.T) {
	tree, ids := buildFixture(t)

	// Tagging "cloud" on top of "aws" and "gcp" collapses to "cloud".
	tags := tree.ResolveAssignment([]shared.ID{ids["aws"], ids["gcp"]}, ids["cloud"])
	require.Len(t, tags, 1)
	assert.True(t, tags[0].Equals(ids["cloud"]))
}

func TestResolveAssignmentIdempotent(t *testing.T) {
	tree, ids := buildFixture(t)

	tags := tree.ResolveAssignment([]shared.ID{ids["aws"]}, ids["aws"])
	require.Len(t, tags, 1)
	assert.True(t, tags[0].Equals(ids["aws"]))
}

func TestResolveAssignmentKeepsSiblings(t *testing.T) {
	tree, ids := buildFixture(t)

	// "onprem" is neither ancestor nor descendant of "aws".
	tags := tree.ResolveAssignment([]shared.ID{ids["onprem"]}, ids["aws"])
	require.Len(t, tags, 2)
}
