package services

import (
	"context"

	"github.com/ethpandaops/conduit-client/types"
)

type TagsService struct {
	sender Sender
}

func (s *TagsService) Get(ctx context.Context) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpGetTags,
	})
}
