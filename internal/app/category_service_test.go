package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatchio/api/pkg/domain/category"
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

func mustCategory(t *testing.T, parent *shared.ID, value string) *category.Category {
	t.Helper()
	c, err := category.New(parent, value, "")
	if err != nil {
		t.Fatalf("new category: %v", err)
	}
	return c
}

// categoryChain builds internet > datacenter > rack as a three-level path.
func categoryChain(t *testing.T) (root, mid, leaf *category.Category) {
	t.Helper()
	root = mustCategory(t, nil, "internet")
	rootID := root.ID
	mid = mustCategory(t, &rootID, "datacenter")
	midID := mid.ID
	leaf = mustCategory(t, &midID, "rack")
	return root, mid, leaf
}

func TestCategoryService_CreateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a root category", func(t *testing.T) {
		repo := newMemCategoryRepo()
		svc := NewCategoryService(repo, newMemAssetRepo(), &memEventRepo{}, testLogger())

		c, err := svc.CreateCategory(ctx, CreateCategoryInput{Value: "internet"})

		require.NoError(t, err)
		assert.True(t, c.IsRoot())
	})

	t.Run("creates a child under an existing parent", func(t *testing.T) {
		parent := mustCategory(t, nil, "internet")
		repo := newMemCategoryRepo(parent)
		svc := NewCategoryService(repo, newMemAssetRepo(), &memEventRepo{}, testLogger())

		c, err := svc.CreateCategory(ctx, CreateCategoryInput{
			ParentID: parent.ID.String(),
			Value:    "datacenter",
		})

		require.NoError(t, err)
		require.NotNil(t, c.ParentID)
		assert.True(t, c.ParentID.Equals(parent.ID))
	})

	t.Run("rejects an unknown parent", func(t *testing.T) {
		svc := NewCategoryService(newMemCategoryRepo(), newMemAssetRepo(), &memEventRepo{}, testLogger())

		_, err := svc.CreateCategory(ctx, CreateCategoryInput{
			ParentID: shared.NewID().String(),
			Value:    "orphan",
		})

		assert.True(t, shared.IsNotFound(err))
	})
}

func TestCategoryService_AssignToAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("assigning a descendant replaces its ancestor", func(t *testing.T) {
		root, mid, leaf := categoryChain(t)
		a := mustAsset(t, "tagged.example.com")
		a.SetCategoryIDs([]shared.ID{root.ID})

		svc := NewCategoryService(newMemCategoryRepo(root, mid, leaf), newMemAssetRepo(a), &memEventRepo{}, testLogger())

		updated, err := svc.AssignToAsset(ctx, a.ID(), leaf.ID)

		require.NoError(t, err)
		ids := updated.CategoryIDs()
		require.Len(t, ids, 1)
		assert.True(t, ids[0].Equals(leaf.ID))
	})

	t.Run("assigning an ancestor replaces its descendants", func(t *testing.T) {
		root, mid, leaf := categoryChain(t)
		a := mustAsset(t, "tagged.example.com")
		a.SetCategoryIDs([]shared.ID{leaf.ID})

		svc := NewCategoryService(newMemCategoryRepo(root, mid, leaf), newMemAssetRepo(a), &memEventRepo{}, testLogger())

		updated, err := svc.AssignToAsset(ctx, a.ID(), root.ID)

		require.NoError(t, err)
		ids := updated.CategoryIDs()
		require.Len(t, ids, 1)
		assert.True(t, ids[0].Equals(root.ID))
	})

	t.Run("tags on separate paths coexist", func(t *testing.T) {
		root, mid, leaf := categoryChain(t)
		other := mustCategory(t, nil, "intranet")
		a := mustAsset(t, "tagged.example.com")
		a.SetCategoryIDs([]shared.ID{other.ID})

		svc := NewCategoryService(newMemCategoryRepo(root, mid, leaf, other), newMemAssetRepo(a), &memEventRepo{}, testLogger())

		updated, err := svc.AssignToAsset(ctx, a.ID(), leaf.ID)

		require.NoError(t, err)
		assert.Len(t, updated.CategoryIDs(), 2)
	})

	t.Run("reassigning the same tag keeps a single copy", func(t *testing.T) {
		root, mid, leaf := categoryChain(t)
		a := mustAsset(t, "tagged.example.com")
		a.SetCategoryIDs([]shared.ID{mid.ID})

		svc := NewCategoryService(newMemCategoryRepo(root, mid, leaf), newMemAssetRepo(a), &memEventRepo{}, testLogger())

		updated, err := svc.AssignToAsset(ctx, a.ID(), mid.ID)

		require.NoError(t, err)
		assert.Len(t, updated.CategoryIDs(), 1)
	})

	t.Run("unknown category", func(t *testing.T) {
		a := mustAsset(t, "tagged.example.com")
		svc := NewCategoryService(newMemCategoryRepo(), newMemAssetRepo(a), &memEventRepo{}, testLogger())

		_, err := svc.AssignToAsset(ctx, a.ID(), shared.NewID())

		assert.True(t, shared.IsNotFound(err))
	})
}

func TestCategoryService_UnassignFromAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only the named tag", func(t *testing.T) {
		root, mid, leaf := categoryChain(t)
		other := mustCategory(t, nil, "intranet")
		a := mustAsset(t, "tagged.example.com")
		a.SetCategoryIDs([]shared.ID{leaf.ID, other.ID})

		svc := NewCategoryService(newMemCategoryRepo(root, mid, leaf, other), newMemAssetRepo(a), &memEventRepo{}, testLogger())

		updated, err := svc.UnassignFromAsset(ctx, a.ID(), leaf.ID)

		require.NoError(t, err)
		ids := updated.CategoryIDs()
		require.Len(t, ids, 1)
		assert.True(t, ids[0].Equals(other.ID))
	})

	t.Run("stripped ancestors stay gone", func(t *testing.T) {
		// Assigning leaf replaced root earlier; unassigning leaf must
		// leave the asset untagged, not resurrect root.
		root, mid, leaf := categoryChain(t)
		a := mustAsset(t, "tagged.example.com")
		a.SetCategoryIDs([]shared.ID{root.ID})

		svc := NewCategoryService(newMemCategoryRepo(root, mid, leaf), newMemAssetRepo(a), &memEventRepo{}, testLogger())

		_, err := svc.AssignToAsset(ctx, a.ID(), leaf.ID)
		require.NoError(t, err)

		updated, err := svc.UnassignFromAsset(ctx, a.ID(), leaf.ID)
		require.NoError(t, err)
		assert.Empty(t, updated.CategoryIDs())
	})

	t.Run("unassigned tag is a no-op", func(t *testing.T) {
		root, mid, leaf := categoryChain(t)
		a := mustAsset(t, "tagged.example.com")

		svc := NewCategoryService(newMemCategoryRepo(root, mid, leaf), newMemAssetRepo(a), &memEventRepo{}, testLogger())

		updated, err := svc.UnassignFromAsset(ctx, a.ID(), leaf.ID)

		require.NoError(t, err)
		assert.Empty(t, updated.CategoryIDs())
	})
}

func TestCategoryService_DeleteCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the whole subtree", func(t *testing.T) {
		root, mid, leaf := categoryChain(t)
		other := mustCategory(t, nil, "intranet")
		repo := newMemCategoryRepo(root, mid, leaf, other)
		svc := NewCategoryService(repo, newMemAssetRepo(), &memEventRepo{}, testLogger())

		require.NoError(t, svc.DeleteCategory(ctx, mid.ID))

		remaining, err := svc.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, remaining, 2)
		values := []string{remaining[0].Value, remaining[1].Value}
		assert.ElementsMatch(t, []string{"internet", "intranet"}, values)
	})

	t.Run("unknown category", func(t *testing.T) {
		svc := NewCategoryService(newMemCategoryRepo(), newMemAssetRepo(), &memEventRepo{}, testLogger())

		err := svc.DeleteCategory(ctx, shared.NewID())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestCategoryService_Tree(t *testing.T) {
	ctx := context.Background()

	root, mid, leaf := categoryChain(t)
	other := mustCategory(t, nil, "intranet")
	svc := NewCategoryService(newMemCategoryRepo(root, mid, leaf, other), newMemAssetRepo(), &memEventRepo{}, testLogger())

	tree, err := svc.Tree(ctx)
	require.NoError(t, err)

	assert.Len(t, tree.Roots(), 2)
	assert.Len(t, tree.Descendants(root.ID), 2)
	assert.Len(t, tree.Subtree(root.ID), 3)
	assert.Empty(t, tree.Descendants(leaf.ID))
}
