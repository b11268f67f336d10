package catalogue

import (
	"testing"

	"github.com/linastore/linastore/internal/store/storeerr"
	"github.com/stretchr/testify/require"
)

func openTestCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalogue_SourceLifecycle(t *testing.T) {
	c := openTestCatalogue(t)

	require.NoError(t, c.InsertSource("src1", "hash-abc", true, 1024))

	s, err := c.GetSourceByID("src1")
	require.NoError(t, err)
	require.Equal(t, "hash-abc", s.Hash256)
	require.True(t, s.Compressed)
	require.EqualValues(t, 1024, s.Size)
	require.EqualValues(t, 1, s.Count)

	byHash, err := c.GetSourceByHash256("hash-abc")
	require.NoError(t, err)
	require.Equal(t, s.ID, byHash.ID)

	require.NoError(t, c.UpdateSource("src1", "hash-def", false, 2048, 2))
	s2, err := c.GetSourceByID("src1")
	require.NoError(t, err)
	require.Equal(t, "hash-def", s2.Hash256)
	require.False(t, s2.Compressed)
	require.EqualValues(t, 2, s2.Count)

	require.NoError(t, c.DeleteSource("src1"))
	_, err = c.GetSourceByID("src1")
	require.Equal(t, storeerr.NotFound, storeerr.CodeOf(err))
}

func TestCatalogue_LinkLifecycle(t *testing.T) {
	c := openTestCatalogue(t)

	require.NoError(t, c.InsertSource("src1", "hash-abc", false, 10))
	require.NoError(t, c.InsertLink("link1", "photo.jpg", "jpg", "src1"))

	links, err := c.GetLinksByName("photo.jpg", false)
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, "src1", links[0].SourceID)

	byExt, err := c.GetLinksByExt("jpg")
	require.NoError(t, err)
	require.Len(t, byExt, 1)

	require.NoError(t, c.InsertSource("src2", "hash-def", false, 20))
	require.NoError(t, c.UpdateLinkSource("link1", "src2"))
	links, err = c.GetLinksByName("photo.jpg", false)
	require.NoError(t, err)
	require.Equal(t, "src2", links[0].SourceID)

	require.NoError(t, c.DeleteLink("link1"))
	links, err = c.GetLinksByName("photo.jpg", false)
	require.NoError(t, err)
	require.Empty(t, links)
}

func TestCatalogue_GetLinksByName_Fuzzy(t *testing.T) {
	c := openTestCatalogue(t)

	require.NoError(t, c.InsertSource("src1", "h1", false, 1))
	require.NoError(t, c.InsertLink("l1", "report-2024.pdf", "pdf", "src1"))
	require.NoError(t, c.InsertLink("l2", "report-2025.pdf", "pdf", "src1"))
	require.NoError(t, c.InsertLink("l3", "invoice.pdf", "pdf", "src1"))

	links, err := c.GetLinksByName(ToLikePattern("report-%"), true)
	require.NoError(t, err)
	require.Len(t, links, 2)
}

func TestCatalogue_ListLinks_Unbounded(t *testing.T) {
	c := openTestCatalogue(t)

	require.NoError(t, c.InsertSource("src1", "h1", false, 1))
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, c.InsertLink(name+"-link", name, "", "src1"))
	}

	all, err := c.ListLinks(0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	limited, err := c.ListLinks(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestCatalogue_GetSourceByID_NotFound(t *testing.T) {
	c := openTestCatalogue(t)

	_, err := c.GetSourceByID("missing")
	require.Equal(t, storeerr.NotFound, storeerr.CodeOf(err))
}

func TestCatalogue_UpdateLinkSource_NotFound(t *testing.T) {
	c := openTestCatalogue(t)

	err := c.UpdateLinkSource("missing", "src1")
	require.Equal(t, storeerr.NotFound, storeerr.CodeOf(err))
}
