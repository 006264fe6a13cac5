package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/conduit-client/metrics"
	"github.com/ethpandaops/conduit-client/types"
	"github.com/sirupsen/logrus"
)

var ErrNoChannel = errors.New("no channel configured for transport")

// Routes maps each operation to the transport that carries it.
type Routes map[types.Operation]types.Transport

// DefaultRoutes sends reads of tags and articles plus article creation over
// the persistent connection and everything else over REST.
func DefaultRoutes() Routes {
	return Routes{
		types.OpGetTags:           types.TransportQEWD,
		types.OpGetArticlesList:   types.TransportQEWD,
		types.OpGetArticlesFeed:   types.TransportQEWD,
		types.OpGetArticleBySlug:  types.TransportQEWD,
		types.OpCreateArticle:     types.TransportQEWD,
		types.OpUpdateArticle:     types.TransportREST,
		types.OpDeleteArticle:     types.TransportREST,
		types.OpGetComments:       types.TransportREST,
		types.OpCreateComment:     types.TransportREST,
		types.OpDeleteComment:     types.TransportREST,
		types.OpFavoriteArticle:   types.TransportREST,
		types.OpUnfavoriteArticle: types.TransportREST,
	}
}

// Apply parses overrides of the form "operation=transport". The operation
// "*" moves every operation to the given transport.
func (r Routes) Apply(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid route override: %s", override)
		}

		transport, err := types.ParseTransport(parts[1])
		if err != nil {
			return err
		}

		name := strings.TrimSpace(parts[0])
		if name == "*" {
			for _, op := range types.Operations {
				r[op] = transport
			}

			continue
		}

		op, err := types.ParseOperation(name)
		if err != nil {
			return err
		}

		r[op] = transport
	}

	return nil
}

// Router dispatches facade requests to the channel configured for them.
type Router struct {
	routes   Routes
	channels map[types.Transport]types.Channel
	logger   logrus.FieldLogger
}

func NewRouter(routes Routes, logger logrus.FieldLogger, channels ...types.Channel) *Router {
	router := &Router{
		routes:   routes,
		channels: make(map[types.Transport]types.Channel, len(channels)),
		logger:   logger,
	}

	for _, channel := range channels {
		router.channels[channel.Transport()] = channel
	}

	return router
}

func (r *Router) TransportFor(op types.Operation) types.Transport {
	if transport, ok := r.routes[op]; ok {
		return transport
	}

	return DefaultRoutes()[op]
}

func (r *Router) Send(ctx context.Context, req *types.Request) (*types.Response, error) {
	transport := r.TransportFor(req.Operation)

	channel, ok := r.channels[transport]
	if !ok {
		return nil, fmt.Errorf("%w: %s (operation %s)", ErrNoChannel, transport, req.Operation)
	}

	start := time.Now()
	rsp, err := channel.Send(ctx, req)
	duration := time.Since(start)

	metrics.ObserveCall(string(transport), string(req.Operation), err, duration)

	entry := r.logger.WithFields(logrus.Fields{
		"operation": req.Operation,
		"transport": transport,
		"duration":  duration,
	})

	if err != nil {
		entry.WithError(err).Debug("call failed")
	} else {
		entry.Debug("call finished")
	}

	return rsp, err
}
