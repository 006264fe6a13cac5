package services

import (
	"context"
	"errors"

	"github.com/ethpandaops/conduit-client/types"
)

// ErrSlugRequired is returned by Get for an empty slug. A typed string can
// never be a non-string, so the empty string is what gets rejected; it is
// refused here rather than sent as a request for every article's comments.
var ErrSlugRequired = errors.New("CommentsService.Get() article slug required to fetch comments")

type CommentsService struct {
	sender Sender
}

// Get fails with ErrSlugRequired before any network call when slug is empty.
func (s *CommentsService) Get(ctx context.Context, slug string) (*types.Response, error) {
	if slug == "" {
		return nil, ErrSlugRequired
	}

	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpGetComments,
		Slug:      slug,
	})
}

func (s *CommentsService) Post(ctx context.Context, slug, body string) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpCreateComment,
		Slug:      slug,
		Comment:   body,
	})
}

func (s *CommentsService) Destroy(ctx context.Context, slug, commentID string) (*types.Response, error) {
	return s.sender.Send(ctx, &types.Request{
		Operation: types.OpDeleteComment,
		Slug:      slug,
		CommentID: commentID,
	})
}
