package qewd

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ethpandaops/conduit-client/metrics"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const DefaultApplication = "qewd-conduit"

type Config struct {
	Application  string
	URL          string
	ReplyTimeout time.Duration
	Dialer       *websocket.Dialer
}

func DefaultConfig() *Config {
	return &Config{
		Application:  DefaultApplication,
		URL:          "ws://localhost:8090/ws",
		ReplyTimeout: 30 * time.Second,
	}
}

// Client bridges the callback based Transport to blocking, cancelable calls.
type Client struct {
	transport Transport
	config    *Config
	logger    logrus.FieldLogger
	state     *State
}

func NewClient(transport Transport, config *Config, logger logrus.FieldLogger) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		transport: transport,
		config:    config,
		logger:    logger,
	}
}

// Init wires the lifecycle handlers to state and starts the transport.
// Start is fire-and-forget: connection failures only show up as
// EventDisconnected.
func (c *Client) Init(state *State) {
	c.state = state

	c.transport.On(EventRegistered, func() {
		metrics.ObserveLifecycleEvent(EventRegistered)
		state.setReady(true)
		state.setLogging(true)
		c.transport.SetLogging(true)
		c.logger.Info("qewd connection registered")
	})

	c.transport.On(EventReregistered, func() {
		metrics.ObserveLifecycleEvent(EventReregistered)
		state.setNotReachable(false)
		c.logger.Info("qewd server reachable again")
	})

	c.transport.On(EventDisconnected, func() {
		metrics.ObserveLifecycleEvent(EventDisconnected)
		state.setNotReachable(true)
		c.logger.Warn("qewd server not reachable")
	})

	c.transport.Start(StartConfig{
		Application: c.config.Application,
		URL:         c.config.URL,
		Dialer:      c.config.Dialer,
	})
}

func (c *Client) State() *State {
	return c.state
}

// Reply sends msg and waits for the backend's answer. The result carries
// Data = Message, or an empty object when the message is nil, false, zero
// or the empty string. Error-shaped answers are returned without error; use
// Response.ErrorMessage to detect them. Reply only fails when ctx is done
// or the reply timeout elapses; the call is then withdrawn so a late answer
// is dropped.
func (c *Client) Reply(ctx context.Context, msg *Message) (*Response, error) {
	if c.config.ReplyTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.config.ReplyTimeout)
		defer cancel()
	}

	responseChan := make(chan *Response, 1)

	withdraw := c.transport.Send(msg, func(rsp *Response) {
		if isFalsy(rsp.Message) {
			rsp.Data = map[string]interface{}{}
		} else {
			rsp.Data = rsp.Message
		}

		select {
		case responseChan <- rsp:
		default:
		}
	})
	defer withdraw()

	select {
	case rsp := <-responseChan:
		return rsp, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("qewd reply for %s: %w", msg.Type, ctx.Err())
	}
}

func isFalsy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case float64:
		return v == 0 || math.IsNaN(v)
	case int:
		return v == 0
	}

	return false
}
