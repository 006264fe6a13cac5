package services

import (
	"context"

	"github.com/ethpandaops/conduit-client/types"
)

// ListFeed selects the personal feed in ArticlesService.Query; any other
// list type returns the global list.
const ListFeed = "feed"

type ArticlesService struct {
	sender Sender
}

func (s *ArticlesService) Query(ctx context.Context, listType string, params map[string]interface{}) (*types.Response, error) {
	op := types.OpGetArticlesList
	if listType == ListFeed {
		op = types.OpGetArticlesFeed
	}

	return s.sender.Send(ctx, &types.Request{
		Operation: op,
		Query:     params,
	})
}

func (s *ArticlesService) Get(ctx context.Context, slug string) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpGetArticleBySlug,
		Slug:      slug,
	})
}

func (s *ArticlesService) Create(ctx context.Context, params map[string]interface{}) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpCreateArticle,
		Article:   params,
	})
}

func (s *ArticlesService) Update(ctx context.Context, slug string, params map[string]interface{}) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpUpdateArticle,
		Slug:      slug,
		Article:   params,
	})
}

func (s *ArticlesService) Destroy(ctx context.Context, slug string) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpDeleteArticle,
		Slug:      slug,
	})
}
