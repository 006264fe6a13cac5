package services

import (
	"context"
	"fmt"

	"github.com/ethpandaops/conduit-client/qewd"
	"github.com/ethpandaops/conduit-client/types"
)

// Replier is the part of qewd.Client the persistent-connection channel needs.
type Replier interface {
	Reply(ctx context.Context, msg *qewd.Message) (*qewd.Response, error)
}

type QEWDChannel struct {
	client Replier
	tokens types.TokenSource
}

func NewQEWDChannel(client Replier, tokenSource types.TokenSource) *QEWDChannel {
	return &QEWDChannel{
		client: client,
		tokens: tokenSource,
	}
}

func (c *QEWDChannel) Transport() types.Transport {
	return types.TransportQEWD
}

func (c *QEWDChannel) Send(ctx context.Context, req *types.Request) (*types.Response, error) {
	jwt := ""
	if c.tokens != nil {
		jwt = c.tokens.GetToken()
	}

	msg, err := buildMessage(req, jwt)
	if err != nil {
		return nil, err
	}

	rsp, err := c.client.Reply(ctx, msg)
	if err != nil {
		return nil, err
	}

	return &types.Response{
		Type:    rsp.Type,
		Data:    rsp.Data,
		Message: rsp.Message,
	}, nil
}

func slugParams(slug string) map[string]interface{} {
	return map[string]interface{}{
		"slug": slug,
	}
}

func buildMessage(req *types.Request, jwt string) (*qewd.Message, error) {
	msg := &qewd.Message{
		Type: string(req.Operation),
		JWT:  jwt,
	}

	switch req.Operation {
	case types.OpGetTags:
		msg.JWT = ""
	case types.OpGetArticlesList, types.OpGetArticlesFeed:
		msg.Query = req.Query
	case types.OpGetArticleBySlug, types.OpDeleteArticle, types.OpFavoriteArticle, types.OpUnfavoriteArticle:
		msg.Params = slugParams(req.Slug)
	case types.OpCreateArticle:
		msg.Body = articleBody(req.Article)
	case types.OpUpdateArticle:
		msg.Params = slugParams(req.Slug)
		msg.Body = articleBody(req.Article)
	case types.OpGetComments:
		msg.Slug = req.Slug
	case types.OpCreateComment:
		msg.Params = slugParams(req.Slug)
		msg.Body = commentBody(req.Comment)
	case types.OpDeleteComment:
		msg.Params = map[string]interface{}{
			"slug": req.Slug,
			"id":   req.CommentID,
		}
	default:
		return nil, fmt.Errorf("unsupported operation: %s", req.Operation)
	}

	return msg, nil
}
