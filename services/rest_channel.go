package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ethpandaops/conduit-client/api"
	"github.com/ethpandaops/conduit-client/types"
)

// HTTPClient is the part of api.Client the REST channel needs.
type HTTPClient interface {
	Query(ctx context.Context, resource string, params url.Values) (*api.Response, error)
	Get(ctx context.Context, resource, slug string) (*api.Response, error)
	Post(ctx context.Context, resource string, body interface{}) (*api.Response, error)
	Update(ctx context.Context, resource, slug string, body interface{}) (*api.Response, error)
	Delete(ctx context.Context, resource string) (*api.Response, error)
}

// restCall is the HTTP shape of one operation.
type restCall struct {
	Method   string
	Resource string
	Slug     string
	Query    bool
	Params   url.Values
	Body     interface{}
}

func (c *restCall) Path() string {
	if c.Slug == "" {
		return c.Resource
	}

	return c.Resource + "/" + c.Slug
}

type RESTChannel struct {
	client HTTPClient
}

func NewRESTChannel(client HTTPClient) *RESTChannel {
	return &RESTChannel{client: client}
}

func (c *RESTChannel) Transport() types.Transport {
	return types.TransportREST
}

func (c *RESTChannel) Send(ctx context.Context, req *types.Request) (*types.Response, error) {
	call, err := buildRESTCall(req)
	if err != nil {
		return nil, err
	}

	var rsp *api.Response

	switch call.Method {
	case http.MethodGet:
		if call.Query {
			rsp, err = c.client.Query(ctx, call.Resource, call.Params)
		} else {
			rsp, err = c.client.Get(ctx, call.Resource, call.Slug)
		}
	case http.MethodPost:
		rsp, err = c.client.Post(ctx, call.Resource, call.Body)
	case http.MethodPut:
		rsp, err = c.client.Update(ctx, call.Resource, call.Slug, call.Body)
	case http.MethodDelete:
		rsp, err = c.client.Delete(ctx, call.Resource)
	}

	if err != nil {
		return nil, err
	}

	return &types.Response{
		Status: rsp.StatusCode,
		Type:   string(req.Operation),
		Data:   rsp.Data,
	}, nil
}

func articlePath(slug string) string {
	return "articles/" + url.PathEscape(slug)
}

func buildRESTCall(req *types.Request) (*restCall, error) {
	slug := url.PathEscape(req.Slug)

	switch req.Operation {
	case types.OpGetTags:
		return &restCall{Method: http.MethodGet, Resource: "tags"}, nil
	case types.OpGetArticlesList:
		return &restCall{Method: http.MethodGet, Resource: "articles", Query: true, Params: queryValues(req.Query)}, nil
	case types.OpGetArticlesFeed:
		return &restCall{Method: http.MethodGet, Resource: "articles/feed", Query: true, Params: queryValues(req.Query)}, nil
	case types.OpGetArticleBySlug:
		return &restCall{Method: http.MethodGet, Resource: "articles", Slug: slug}, nil
	case types.OpCreateArticle:
		return &restCall{Method: http.MethodPost, Resource: "articles", Body: articleBody(req.Article)}, nil
	case types.OpUpdateArticle:
		return &restCall{Method: http.MethodPut, Resource: "articles", Slug: slug, Body: articleBody(req.Article)}, nil
	case types.OpDeleteArticle:
		return &restCall{Method: http.MethodDelete, Resource: articlePath(req.Slug)}, nil
	case types.OpGetComments:
		return &restCall{Method: http.MethodGet, Resource: "articles", Slug: slug + "/comments"}, nil
	case types.OpCreateComment:
		return &restCall{Method: http.MethodPost, Resource: articlePath(req.Slug) + "/comments", Body: commentBody(req.Comment)}, nil
	case types.OpDeleteComment:
		return &restCall{Method: http.MethodDelete, Resource: articlePath(req.Slug) + "/comments/" + url.PathEscape(req.CommentID)}, nil
	case types.OpFavoriteArticle:
		return &restCall{Method: http.MethodPost, Resource: articlePath(req.Slug) + "/favorite"}, nil
	case types.OpUnfavoriteArticle:
		return &restCall{Method: http.MethodDelete, Resource: articlePath(req.Slug) + "/favorite"}, nil
	default:
		return nil, fmt.Errorf("unsupported operation: %s", req.Operation)
	}
}

func queryValues(params map[string]interface{}) url.Values {
	if len(params) == 0 {
		return nil
	}

	values := url.Values{}

	for key, value := range params {
		switch v := value.(type) {
		case nil:
			continue
		case []string:
			for _, item := range v {
				values.Add(key, item)
			}
		case []interface{}:
			for _, item := range v {
				values.Add(key, fmt.Sprint(item))
			}
		default:
			values.Set(key, fmt.Sprint(v))
		}
	}

	return values
}

func articleBody(article map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"article": article,
	}
}

func commentBody(body string) map[string]interface{} {
	return map[string]interface{}{
		"comment": map[string]interface{}{
			"body": body,
		},
	}
}
