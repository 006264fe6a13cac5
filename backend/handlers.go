package backend

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ethpandaops/conduit-client/tokens"
	"github.com/ethpandaops/conduit-client/types"
	"github.com/sirupsen/logrus"
)

const defaultListLimit = 20

// Call is one operation as decoded from either transport.
type Call struct {
	Operation types.Operation
	Token     string
	Slug      string
	CommentID string
	Query     map[string]string
	Article   *ArticleFields
	Comment   string
}

// ArticleFields holds the article attributes a create or update sets. Nil
// fields are left untouched on update.
type ArticleFields struct {
	Title       *string
	Description *string
	Body        *string
	TagList     []string
}

func (f *ArticleFields) apply(article *Article) {
	if f.Title != nil {
		article.Title = *f.Title
	}

	if f.Description != nil {
		article.Description = *f.Description
	}

	if f.Body != nil {
		article.Body = *f.Body
	}

	if f.TagList != nil {
		article.TagList = append([]string(nil), f.TagList...)
	}
}

// parseArticleFields reads the inner "article" object of a request body.
func parseArticleFields(raw map[string]interface{}) *ArticleFields {
	fields := &ArticleFields{}

	if raw == nil {
		return fields
	}

	stringField := func(key string) *string {
		if value, ok := raw[key].(string); ok {
			return &value
		}

		return nil
	}

	fields.Title = stringField("title")
	fields.Description = stringField("description")
	fields.Body = stringField("body")

	switch tags := raw["tagList"].(type) {
	case []interface{}:
		fields.TagList = make([]string, 0, len(tags))

		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				fields.TagList = append(fields.TagList, s)
			}
		}
	case []string:
		fields.TagList = append([]string{}, tags...)
	}

	return fields
}

type Config struct {
	// JWTSecret verifies bearer tokens. When empty, tokens are decoded
	// without signature checks.
	JWTSecret []byte
}

// Backend answers Conduit operations for both the REST and the QEWD
// front ends.
type Backend struct {
	config *Config
	store  *Store
	logger logrus.FieldLogger
}

func New(config *Config, store *Store, logger logrus.FieldLogger) *Backend {
	if config == nil {
		config = &Config{}
	}

	if store == nil {
		store = NewStore()
	}

	return &Backend{
		config: config,
		store:  store,
		logger: logger,
	}
}

func (b *Backend) Store() *Store {
	return b.store
}

// IssueToken signs a token for username with the configured secret.
func (b *Backend) IssueToken(username string, ttl time.Duration) (string, error) {
	return tokens.CreateToken(b.config.JWTSecret, username, ttl)
}

// user resolves the caller. An empty result means anonymous.
func (b *Backend) user(token string) string {
	if token == "" {
		return ""
	}

	var (
		claims *tokens.Claims
		err    error
	)

	if len(b.config.JWTSecret) > 0 {
		claims, err = tokens.Verify(b.config.JWTSecret, token)
	} else {
		claims, err = tokens.Inspect(token)
	}

	if err != nil {
		b.logger.WithError(err).Debug("ignoring unusable token")
		return ""
	}

	return claims.Username
}

// Handle executes call and returns the response document.
func (b *Backend) Handle(call *Call) (interface{}, error) {
	user := b.user(call.Token)

	switch call.Operation {
	case types.OpGetTags:
		return map[string]interface{}{"tags": b.store.Tags()}, nil

	case types.OpGetArticlesList:
		filter := listFilter(call.Query)
		filter.Tag = call.Query["tag"]
		filter.Author = call.Query["author"]
		filter.Favorited = call.Query["favorited"]

		return b.articleList(user, filter), nil

	case types.OpGetArticlesFeed:
		if user == "" {
			return nil, errUnauthorized
		}

		filter := listFilter(call.Query)
		filter.NotAuthor = user

		return b.articleList(user, filter), nil

	case types.OpGetArticleBySlug:
		article, err := b.store.Get(call.Slug)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{"article": articleView(article, user)}, nil

	case types.OpCreateArticle:
		if user == "" {
			return nil, errUnauthorized
		}

		article, err := b.store.Create(user, articleFields(call))
		if err != nil {
			return nil, err
		}

		b.logger.WithFields(logrus.Fields{"slug": article.Slug, "author": user}).Info("article created")

		return map[string]interface{}{"article": articleView(article, user)}, nil

	case types.OpUpdateArticle:
		if user == "" {
			return nil, errUnauthorized
		}

		article, err := b.store.Update(user, call.Slug, articleFields(call))
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{"article": articleView(article, user)}, nil

	case types.OpDeleteArticle:
		if user == "" {
			return nil, errUnauthorized
		}

		if err := b.store.Delete(user, call.Slug); err != nil {
			return nil, err
		}

		return map[string]interface{}{}, nil

	case types.OpGetComments:
		comments, err := b.store.Comments(call.Slug)
		if err != nil {
			return nil, err
		}

		views := make([]map[string]interface{}, 0, len(comments))
		for _, comment := range comments {
			views = append(views, commentView(comment))
		}

		return map[string]interface{}{"comments": views}, nil

	case types.OpCreateComment:
		if user == "" {
			return nil, errUnauthorized
		}

		comment, err := b.store.AddComment(user, call.Slug, call.Comment)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{"comment": commentView(comment)}, nil

	case types.OpDeleteComment:
		if user == "" {
			return nil, errUnauthorized
		}

		if err := b.store.DeleteComment(user, call.Slug, call.CommentID); err != nil {
			return nil, err
		}

		return map[string]interface{}{}, nil

	case types.OpFavoriteArticle, types.OpUnfavoriteArticle:
		if user == "" {
			return nil, errUnauthorized
		}

		article, err := b.store.SetFavorite(user, call.Slug, call.Operation == types.OpFavoriteArticle)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{"article": articleView(article, user)}, nil
	}

	return nil, errInvalid(fmt.Sprintf("unknown operation: %s", call.Operation))
}

func articleFields(call *Call) *ArticleFields {
	if call.Article == nil {
		return &ArticleFields{}
	}

	return call.Article
}

func listFilter(query map[string]string) ListFilter {
	filter := ListFilter{Limit: defaultListLimit}

	if limit, err := strconv.Atoi(query["limit"]); err == nil && limit > 0 {
		filter.Limit = limit
	}

	if offset, err := strconv.Atoi(query["offset"]); err == nil && offset > 0 {
		filter.Offset = offset
	}

	return filter
}

func (b *Backend) articleList(user string, filter ListFilter) map[string]interface{} {
	articles, total := b.store.List(filter)

	views := make([]map[string]interface{}, 0, len(articles))
	for _, article := range articles {
		views = append(views, articleView(article, user))
	}

	return map[string]interface{}{
		"articles":      views,
		"articlesCount": total,
	}
}

func articleView(article *Article, user string) map[string]interface{} {
	tags := article.TagList
	if tags == nil {
		tags = []string{}
	}

	return map[string]interface{}{
		"slug":           article.Slug,
		"title":          article.Title,
		"description":    article.Description,
		"body":           article.Body,
		"tagList":        tags,
		"createdAt":      article.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt":      article.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"favorited":      article.FavoritedBy(user),
		"favoritesCount": article.FavoritesCount(),
		"author": map[string]interface{}{
			"username": article.Author,
		},
	}
}

func commentView(comment *Comment) map[string]interface{} {
	return map[string]interface{}{
		"id":        comment.ID,
		"body":      comment.Body,
		"createdAt": comment.CreatedAt.UTC().Format(time.RFC3339Nano),
		"author": map[string]interface{}{
			"username": comment.Author,
		},
	}
}
