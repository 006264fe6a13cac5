package types

import (
	"context"
	"fmt"
	"strings"
)

// Operation names a backend operation. The value doubles as the `type`
// discriminator of persistent-connection messages.
type Operation string

const (
	OpGetTags           Operation = "getTags"
	OpGetArticlesList   Operation = "getArticlesList"
	OpGetArticlesFeed   Operation = "getArticlesFeed"
	OpGetArticleBySlug  Operation = "getArticleBySlug"
	OpCreateArticle     Operation = "createArticle"
	OpUpdateArticle     Operation = "updateArticle"
	OpDeleteArticle     Operation = "deleteArticle"
	OpGetComments       Operation = "getComments"
	OpCreateComment     Operation = "createComment"
	OpDeleteComment     Operation = "deleteComment"
	OpFavoriteArticle   Operation = "favoriteArticle"
	OpUnfavoriteArticle Operation = "unfavoriteArticle"
)

// Operations lists every operation a facade can issue.
var Operations = []Operation{
	OpGetTags,
	OpGetArticlesList,
	OpGetArticlesFeed,
	OpGetArticleBySlug,
	OpCreateArticle,
	OpUpdateArticle,
	OpDeleteArticle,
	OpGetComments,
	OpCreateComment,
	OpDeleteComment,
	OpFavoriteArticle,
	OpUnfavoriteArticle,
}

func ParseOperation(s string) (Operation, error) {
	for _, op := range Operations {
		if strings.EqualFold(string(op), s) {
			return op, nil
		}
	}

	return "", fmt.Errorf("unknown operation: %s", s)
}

// Transport selects which request channel carries an operation.
type Transport string

const (
	TransportREST Transport = "rest"
	TransportQEWD Transport = "qewd"
)

func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(strings.TrimSpace(s))) {
	case TransportREST:
		return TransportREST, nil
	case TransportQEWD:
		return TransportQEWD, nil
	default:
		return "", fmt.Errorf("unknown transport: %s", s)
	}
}

// Request is the transport-neutral form of a facade call.
type Request struct {
	Operation Operation
	Slug      string
	CommentID string
	Query     map[string]interface{}
	Article   map[string]interface{}
	Comment   string
}

// Response is what both channels resolve with. Data holds the decoded HTTP
// body or the message field of a persistent-connection reply.
type Response struct {
	Status  int
	Type    string
	Data    interface{}
	Message interface{}
}

// Channel carries a request to the backend over one transport.
type Channel interface {
	Transport() Transport
	Send(ctx context.Context, req *Request) (*Response, error)
}

// TokenSource hands out the current bearer token; "" means none.
type TokenSource interface {
	GetToken() string
}
