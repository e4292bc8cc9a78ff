package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlore/playlore-server/internal/domain"
)

func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func testGames() []*domain.Game {
	added := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*domain.Game{
		{
			ID: "g-1", Title: "Alien Hominid", Developer: "The Behemoth",
			Library: "arcade", Tags: []string{"Action", "Shooter"}, Platforms: []string{"Flash"},
			ReleaseDate: "2002-08-07",
			Timestamps:  domain.Timestamps{DateAdded: added, DateModified: added},
		},
		{
			ID: "g-2", Title: "Castle Crashers", AlternateTitles: "Behemoth Brawler",
			Developer: "The Behemoth", Library: "arcade", Tags: []string{"Action"},
			TagsStr: "Action", PlatformsStr: "Flash; HTML5", ReleaseDate: "2008",
			Timestamps: domain.Timestamps{DateAdded: added.Add(time.Hour), DateModified: added},
		},
		{
			ID: "g-3", Title: "Hotel Mystery", Library: "theatre", Extreme: true,
			Tags: []string{"Adventure"}, Platforms: []string{"Shockwave"}, ReleaseDate: "2011-02",
			Timestamps: domain.Timestamps{DateAdded: added.Add(2 * time.Hour), DateModified: added},
		},
	}
}

func indexTestGames(t *testing.T, index *SearchIndex) {
	t.Helper()
	require.NoError(t, NewIndexer(index).IndexGames(context.Background(), testGames()))
}

func TestNewSearchIndex_Empty(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSearchIndex_ReopensExisting(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	indexTestGames(t, index)
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestGameToDocument(t *testing.T) {
	g := testGames()[1]
	doc := GameToDocument(g)

	assert.Equal(t, "g-2", doc.ID)
	assert.Equal(t, []string{"Action"}, doc.Tags)
	assert.Equal(t, []string{"Flash", "HTML5"}, doc.Platforms, "falls back to the denormalized cache")
	assert.Equal(t, 2008, doc.ReleaseYear)
	assert.Equal(t, g.DateAdded.UnixMilli(), doc.DateAdded)

	m := doc.ToMap()
	assert.NotContains(t, m, "description")
	assert.Equal(t, "Behemoth Brawler", m["alternate_titles"])
}

func TestReleaseYear(t *testing.T) {
	assert.Equal(t, 2011, releaseYear("2011-02-03"))
	assert.Equal(t, 0, releaseYear(""))
	assert.Equal(t, 0, releaseYear("unknown"))
}

func TestSearch_TitleMatch(t *testing.T) {
	index := setupTestIndex(t)
	indexTestGames(t, index)

	params := DefaultSearchParams()
	params.Query = "castle"
	res, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "g-2", res.Hits[0].ID)
	assert.Equal(t, "Castle Crashers", res.Hits[0].Title)
	assert.Equal(t, "arcade", res.Hits[0].Library)
}

func TestSearch_FuzzyMatch(t *testing.T) {
	index := setupTestIndex(t)
	indexTestGames(t, index)

	params := DefaultSearchParams()
	params.Query = "hominod"
	res, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "g-1", res.Hits[0].ID)
}

func TestSearch_Filters(t *testing.T) {
	index := setupTestIndex(t)
	indexTestGames(t, index)
	ctx := context.Background()

	params := DefaultSearchParams()
	params.Libraries = []string{"arcade"}
	res, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)

	params = DefaultSearchParams()
	params.Tags = []string{"Adventure"}
	res, err = index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)

	params.HideExtreme = true
	res, err = index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Total)

	params = DefaultSearchParams()
	params.MinYear = 2005
	res, err = index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
}

func TestSearch_Facets(t *testing.T) {
	index := setupTestIndex(t)
	indexTestGames(t, index)

	res, err := index.Search(context.Background(), DefaultSearchParams())
	require.NoError(t, err)

	libraries := map[string]int{}
	for _, f := range res.Facets.Libraries {
		libraries[f.Value] = f.Count
	}
	assert.Equal(t, map[string]int{"arcade": 2, "theatre": 1}, libraries)
}

func TestSearch_SortRecent(t *testing.T) {
	index := setupTestIndex(t)
	indexTestGames(t, index)

	params := DefaultSearchParams()
	params.SortBy = SortRecent
	params.SortOrder = "desc"
	res, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, res.Hits, 3)
	assert.Equal(t, []string{"g-3", "g-2", "g-1"}, []string{res.Hits[0].ID, res.Hits[1].ID, res.Hits[2].ID})
}

func TestIndexer_DeleteGames(t *testing.T) {
	index := setupTestIndex(t)
	indexTestGames(t, index)

	require.NoError(t, NewIndexer(index).DeleteGames(context.Background(), []string{"g-1", "missing"}))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestSearchIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)
	indexTestGames(t, index)

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
