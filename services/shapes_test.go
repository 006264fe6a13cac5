package services

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/ethpandaops/conduit-client/qewd"
	"github.com/ethpandaops/conduit-client/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	article := map[string]interface{}{"title": "How to train your dragon"}

	tests := []struct {
		name     string
		request  *types.Request
		expected *qewd.Message
	}{
		{
			name:     "tags carry no token",
			request:  &types.Request{Operation: types.OpGetTags},
			expected: &qewd.Message{Type: "getTags"},
		},
		{
			name:    "article list",
			request: &types.Request{Operation: types.OpGetArticlesList, Query: map[string]interface{}{"tag": "go"}},
			expected: &qewd.Message{
				Type:  "getArticlesList",
				Query: map[string]interface{}{"tag": "go"},
				JWT:   "abc",
			},
		},
		{
			name:    "article feed",
			request: &types.Request{Operation: types.OpGetArticlesFeed, Query: map[string]interface{}{"limit": 10}},
			expected: &qewd.Message{
				Type:  "getArticlesFeed",
				Query: map[string]interface{}{"limit": 10},
				JWT:   "abc",
			},
		},
		{
			name:    "article by slug",
			request: &types.Request{Operation: types.OpGetArticleBySlug, Slug: "dragons"},
			expected: &qewd.Message{
				Type:   "getArticleBySlug",
				Params: map[string]interface{}{"slug": "dragons"},
				JWT:    "abc",
			},
		},
		{
			name:    "create article",
			request: &types.Request{Operation: types.OpCreateArticle, Article: article},
			expected: &qewd.Message{
				Type: "createArticle",
				Body: map[string]interface{}{"article": article},
				JWT:  "abc",
			},
		},
		{
			name:    "update article",
			request: &types.Request{Operation: types.OpUpdateArticle, Slug: "dragons", Article: article},
			expected: &qewd.Message{
				Type:   "updateArticle",
				Params: map[string]interface{}{"slug": "dragons"},
				Body:   map[string]interface{}{"article": article},
				JWT:    "abc",
			},
		},
		{
			name:    "delete article",
			request: &types.Request{Operation: types.OpDeleteArticle, Slug: "dragons"},
			expected: &qewd.Message{
				Type:   "deleteArticle",
				Params: map[string]interface{}{"slug": "dragons"},
				JWT:    "abc",
			},
		},
		{
			name:    "comments use a bare slug",
			request: &types.Request{Operation: types.OpGetComments, Slug: "dragons"},
			expected: &qewd.Message{
				Type: "getComments",
				Slug: "dragons",
				JWT:  "abc",
			},
		},
		{
			name:    "create comment",
			request: &types.Request{Operation: types.OpCreateComment, Slug: "dragons", Comment: "nice"},
			expected: &qewd.Message{
				Type:   "createComment",
				Params: map[string]interface{}{"slug": "dragons"},
				Body:   map[string]interface{}{"comment": map[string]interface{}{"body": "nice"}},
				JWT:    "abc",
			},
		},
		{
			name:    "delete comment",
			request: &types.Request{Operation: types.OpDeleteComment, Slug: "dragons", CommentID: "7"},
			expected: &qewd.Message{
				Type:   "deleteComment",
				Params: map[string]interface{}{"slug": "dragons", "id": "7"},
				JWT:    "abc",
			},
		},
		{
			name:    "favorite",
			request: &types.Request{Operation: types.OpFavoriteArticle, Slug: "dragons"},
			expected: &qewd.Message{
				Type:   "favoriteArticle",
				Params: map[string]interface{}{"slug": "dragons"},
				JWT:    "abc",
			},
		},
		{
			name:    "unfavorite",
			request: &types.Request{Operation: types.OpUnfavoriteArticle, Slug: "dragons"},
			expected: &qewd.Message{
				Type:   "unfavoriteArticle",
				Params: map[string]interface{}{"slug": "dragons"},
				JWT:    "abc",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			msg, err := buildMessage(test.request, "abc")
			require.NoError(t, err)
			assert.Equal(t, test.expected, msg)
		})
	}

	_, err := buildMessage(&types.Request{Operation: "bogus"}, "abc")
	require.Error(t, err)
}

func TestBuildRESTCall(t *testing.T) {
	tests := []struct {
		name   string
		req    *types.Request
		method string
		path   string
		query  bool
		body   interface{}
	}{
		{"tags", &types.Request{Operation: types.OpGetTags}, http.MethodGet, "tags", false, nil},
		{"list", &types.Request{Operation: types.OpGetArticlesList}, http.MethodGet, "articles", true, nil},
		{"feed", &types.Request{Operation: types.OpGetArticlesFeed}, http.MethodGet, "articles/feed", true, nil},
		{"get", &types.Request{Operation: types.OpGetArticleBySlug, Slug: "dragons"}, http.MethodGet, "articles/dragons", false, nil},
		{
			"create",
			&types.Request{Operation: types.OpCreateArticle, Article: map[string]interface{}{"title": "t"}},
			http.MethodPost, "articles", false,
			map[string]interface{}{"article": map[string]interface{}{"title": "t"}},
		},
		{
			"update",
			&types.Request{Operation: types.OpUpdateArticle, Slug: "dragons", Article: map[string]interface{}{"title": "t"}},
			http.MethodPut, "articles/dragons", false,
			map[string]interface{}{"article": map[string]interface{}{"title": "t"}},
		},
		{"destroy", &types.Request{Operation: types.OpDeleteArticle, Slug: "dragons"}, http.MethodDelete, "articles/dragons", false, nil},
		{"comments", &types.Request{Operation: types.OpGetComments, Slug: "dragons"}, http.MethodGet, "articles/dragons/comments", false, nil},
		{
			"post comment",
			&types.Request{Operation: types.OpCreateComment, Slug: "dragons", Comment: "nice"},
			http.MethodPost, "articles/dragons/comments", false,
			map[string]interface{}{"comment": map[string]interface{}{"body": "nice"}},
		},
		{
			"destroy comment",
			&types.Request{Operation: types.OpDeleteComment, Slug: "dragons", CommentID: "7"},
			http.MethodDelete, "articles/dragons/comments/7", false, nil,
		},
		{"favorite", &types.Request{Operation: types.OpFavoriteArticle, Slug: "dragons"}, http.MethodPost, "articles/dragons/favorite", false, nil},
		{"unfavorite", &types.Request{Operation: types.OpUnfavoriteArticle, Slug: "dragons"}, http.MethodDelete, "articles/dragons/favorite", false, nil},
		{"escaped slug", &types.Request{Operation: types.OpGetArticleBySlug, Slug: "a b/c"}, http.MethodGet, "articles/a%20b%2Fc", false, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			call, err := buildRESTCall(test.req)
			require.NoError(t, err)
			assert.Equal(t, test.method, call.Method)
			assert.Equal(t, test.path, call.Path())
			assert.Equal(t, test.query, call.Query)

			if test.body == nil {
				assert.Nil(t, call.Body)
			} else {
				assert.Equal(t, test.body, call.Body)
			}
		})
	}
}

func TestQueryValues(t *testing.T) {
	assert.Nil(t, queryValues(nil))

	values := queryValues(map[string]interface{}{
		"limit":  10,
		"tag":    "go",
		"author": nil,
		"ids":    []interface{}{1, 2},
	})

	assert.Equal(t, url.Values{
		"limit": {"10"},
		"tag":   {"go"},
		"ids":   {"1", "2"},
	}, values)
}
