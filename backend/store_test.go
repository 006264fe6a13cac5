package backend

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func newTestStore() *Store {
	store := NewStore()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	return store
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	require.Error(t, err)

	opErr, ok := err.(*Error)
	require.True(t, ok, "expected *Error, got %T", err)
	assert.Equal(t, status, opErr.Status)
}

func TestSlugify(t *testing.T) {
	slug := slugify("How to train  your Dragon!")
	assert.True(t, strings.HasPrefix(slug, "how-to-train-your-dragon-"), slug)
	assert.NotEqual(t, slug, slugify("How to train  your Dragon!"))

	assert.Len(t, slugify("!!!"), 8)
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore()

	created, err := store.Create("alice", &ArticleFields{
		Title:   strPtr("Dragons"),
		Body:    strPtr("about dragons"),
		TagList: []string{"fantasy", "dragons"},
	})
	require.NoError(t, err)

	got, err := store.Get(created.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Dragons", got.Title)
	assert.Equal(t, "alice", got.Author)
	assert.Equal(t, []string{"dragons", "fantasy"}, store.Tags())

	_, err = store.Get("missing")
	requireStatus(t, err, http.StatusNotFound)

	_, err = store.Create("alice", &ArticleFields{Title: strPtr("  ")})
	requireStatus(t, err, http.StatusUnprocessableEntity)
}

func TestStoreListFilters(t *testing.T) {
	store := newTestStore()

	a1, err := store.Create("alice", &ArticleFields{Title: strPtr("one"), TagList: []string{"go"}})
	require.NoError(t, err)
	a2, err := store.Create("bob", &ArticleFields{Title: strPtr("two"), TagList: []string{"rust"}})
	require.NoError(t, err)
	a3, err := store.Create("alice", &ArticleFields{Title: strPtr("three"), TagList: []string{"go"}})
	require.NoError(t, err)

	_, err = store.SetFavorite("bob", a1.Slug, true)
	require.NoError(t, err)

	slugs := func(articles []*Article) []string {
		res := []string{}
		for _, a := range articles {
			res = append(res, a.Slug)
		}

		return res
	}

	all, total := store.List(ListFilter{})
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{a3.Slug, a2.Slug, a1.Slug}, slugs(all))

	byTag, total := store.List(ListFilter{Tag: "go"})
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{a3.Slug, a1.Slug}, slugs(byTag))

	byAuthor, _ := store.List(ListFilter{Author: "bob"})
	assert.Equal(t, []string{a2.Slug}, slugs(byAuthor))

	notAuthor, _ := store.List(ListFilter{NotAuthor: "alice"})
	assert.Equal(t, []string{a2.Slug}, slugs(notAuthor))

	favorited, _ := store.List(ListFilter{Favorited: "bob"})
	require.Len(t, favorited, 1)
	assert.True(t, favorited[0].FavoritedBy("bob"))
	assert.Equal(t, 1, favorited[0].FavoritesCount())

	page, total := store.List(ListFilter{Limit: 1, Offset: 1})
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{a2.Slug}, slugs(page))

	empty, _ := store.List(ListFilter{Offset: 10})
	assert.Empty(t, empty)
}

func TestStoreUpdateAndDeleteRequireAuthor(t *testing.T) {
	store := newTestStore()

	article, err := store.Create("alice", &ArticleFields{Title: strPtr("Dragons")})
	require.NoError(t, err)

	_, err = store.Update("bob", article.Slug, &ArticleFields{Title: strPtr("Owls")})
	requireStatus(t, err, http.StatusForbidden)

	updated, err := store.Update("alice", article.Slug, &ArticleFields{Description: strPtr("desc")})
	require.NoError(t, err)
	assert.Equal(t, "Dragons", updated.Title)
	assert.Equal(t, "desc", updated.Description)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	requireStatus(t, store.Delete("bob", article.Slug), http.StatusForbidden)
	require.NoError(t, store.Delete("alice", article.Slug))
	requireStatus(t, store.Delete("alice", article.Slug), http.StatusNotFound)
}

func TestStoreComments(t *testing.T) {
	store := newTestStore()

	article, err := store.Create("alice", &ArticleFields{Title: strPtr("Dragons")})
	require.NoError(t, err)

	comment, err := store.AddComment("bob", article.Slug, "nice")
	require.NoError(t, err)
	assert.Equal(t, 1, comment.ID)

	_, err = store.AddComment("bob", article.Slug, "")
	requireStatus(t, err, http.StatusUnprocessableEntity)

	comments, err := store.Comments(article.Slug)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].Body)

	requireStatus(t, store.DeleteComment("alice", article.Slug, "1"), http.StatusForbidden)
	requireStatus(t, store.DeleteComment("bob", article.Slug, "x"), http.StatusNotFound)
	require.NoError(t, store.DeleteComment("bob", article.Slug, "1"))

	comments, err = store.Comments(article.Slug)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = store.Comments("missing")
	requireStatus(t, err, http.StatusNotFound)
}
