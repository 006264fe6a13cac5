package services

import (
	"context"

	"github.com/ethpandaops/conduit-client/qewd"
	"github.com/ethpandaops/conduit-client/types"
)

// Sender is implemented by Router; facades only build requests.
type Sender interface {
	Send(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Services bundles the resource facades the application calls.
type Services struct {
	Tags      *TagsService
	Articles  *ArticlesService
	Comments  *CommentsService
	Favorites *FavoriteService

	state *qewd.State
}

func New(sender Sender, state *qewd.State) *Services {
	return &Services{
		Tags:      &TagsService{sender: sender},
		Articles:  &ArticlesService{sender: sender},
		Comments:  &CommentsService{sender: sender},
		Favorites: &FavoriteService{sender: sender},
		state:     state,
	}
}

// Connection exposes the persistent connection flags read-only.
func (s *Services) Connection() ConnectionState {
	if s.state == nil {
		return nil
	}

	return s.state
}

type ConnectionState interface {
	Ready() bool
	NotReachable() bool
	Logging() bool
}
