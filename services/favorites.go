package services

import (
	"context"

	"github.com/ethpandaops/conduit-client/types"
)

type FavoriteService struct {
	sender Sender
}

func (s *FavoriteService) Add(ctx context.Context, slug string) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpFavoriteArticle,
		Slug:      slug,
	})
}

func (s *FavoriteService) Remove(ctx context.Context, slug string) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpUnfavoriteArticle,
		Slug:      slug,
	})
}
