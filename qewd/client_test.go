package qewd

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	mu       sync.Mutex
	handlers map[string][]func()
	started  []StartConfig
	sent     []*Message
	logging  bool
	answer   func(msg *Message) *Response

	withdrawn int
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		handlers: make(map[string][]func()),
	}
}

func (s *stubTransport) On(event string, handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[event] = append(s.handlers[event], handler)
}

func (s *stubTransport) Start(config StartConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = append(s.started, config)
}

func (s *stubTransport) Send(msg *Message, callback func(*Response)) func() {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	answer := s.answer
	s.mu.Unlock()

	withdraw := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.withdrawn++
	}

	if answer == nil {
		return withdraw
	}

	if rsp := answer(msg); rsp != nil {
		go callback(rsp)
	}

	return withdraw
}

func (s *stubTransport) SetLogging(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logging = enabled
}

func (s *stubTransport) emit(event string) {
	s.mu.Lock()
	handlers := append([]func(){}, s.handlers[event]...)
	s.mu.Unlock()

	for _, handler := range handlers {
		handler()
	}
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

func newTestClient(transport Transport, timeout time.Duration) *Client {
	return NewClient(transport, &Config{
		Application:  DefaultApplication,
		URL:          "ws://qewd.test/ws",
		ReplyTimeout: timeout,
	}, testLogger())
}

func TestInitRegistersHandlersAndStarts(t *testing.T) {
	transport := newStubTransport()
	client := newTestClient(transport, time.Second)

	state := NewState()
	client.Init(state)

	assert.Len(t, transport.handlers[EventRegistered], 1)
	assert.Len(t, transport.handlers[EventReregistered], 1)
	assert.Len(t, transport.handlers[EventDisconnected], 1)

	require.Len(t, transport.started, 1)
	assert.Equal(t, DefaultApplication, transport.started[0].Application)
	assert.Equal(t, "ws://qewd.test/ws", transport.started[0].URL)

	assert.Same(t, state, client.State())
	assert.False(t, state.Ready())
	assert.False(t, state.NotReachable())
	assert.False(t, state.Logging())
}

func TestLifecycleEvents(t *testing.T) {
	t.Run("registered sets ready and logging", func(t *testing.T) {
		transport := newStubTransport()
		state := NewState()
		newTestClient(transport, time.Second).Init(state)

		transport.emit(EventRegistered)

		assert.True(t, state.Ready())
		assert.True(t, state.Logging())
		assert.False(t, state.NotReachable())
		assert.True(t, transport.logging)
	})

	t.Run("disconnected sets not reachable", func(t *testing.T) {
		transport := newStubTransport()
		state := NewState()
		newTestClient(transport, time.Second).Init(state)

		transport.emit(EventDisconnected)

		assert.True(t, state.NotReachable())
		assert.False(t, state.Ready())
		assert.False(t, state.Logging())
	})

	t.Run("reregistered clears not reachable", func(t *testing.T) {
		transport := newStubTransport()
		state := NewState()
		newTestClient(transport, time.Second).Init(state)

		transport.emit(EventRegistered)
		transport.emit(EventDisconnected)
		require.True(t, state.NotReachable())

		transport.emit(EventReregistered)

		assert.False(t, state.NotReachable())
		assert.True(t, state.Ready())
		assert.True(t, state.Logging())
	})
}

func TestWaitReady(t *testing.T) {
	transport := newStubTransport()
	state := NewState()
	newTestClient(transport, time.Second).Init(state)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, state.WaitReady(ctx), context.DeadlineExceeded)

	transport.emit(EventRegistered)
	transport.emit(EventRegistered)

	require.NoError(t, state.WaitReady(context.Background()))
}

func TestReplyCopiesMessageIntoData(t *testing.T) {
	tests := []struct {
		name     string
		response *Response
		data     interface{}
	}{
		{
			name:     "message present",
			response: &Response{Type: "getTags", Message: map[string]interface{}{"foo": 1}},
			data:     map[string]interface{}{"foo": 1},
		},
		{
			name:     "message absent",
			response: &Response{},
			data:     map[string]interface{}{},
		},
		{
			name:     "empty string message",
			response: &Response{Message: ""},
			data:     map[string]interface{}{},
		},
		{
			name:     "zero message",
			response: &Response{Message: float64(0)},
			data:     map[string]interface{}{},
		},
		{
			name:     "false message",
			response: &Response{Message: false},
			data:     map[string]interface{}{},
		},
		{
			name:     "text message",
			response: &Response{Message: "done"},
			data:     "done",
		},
		{
			name:     "true message",
			response: &Response{Message: true},
			data:     true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			transport := newStubTransport()
			transport.answer = func(msg *Message) *Response {
				return test.response
			}

			client := newTestClient(transport, time.Second)

			rsp, err := client.Reply(context.Background(), &Message{Type: "getTags"})
			require.NoError(t, err)
			assert.Equal(t, test.data, rsp.Data)
		})
	}
}

func TestReplyResolvesErrorShapedAnswers(t *testing.T) {
	transport := newStubTransport()
	transport.answer = func(msg *Message) *Response {
		return &Response{
			Type:    msg.Type,
			Message: map[string]interface{}{"error": "article not found"},
		}
	}

	client := newTestClient(transport, time.Second)

	rsp, err := client.Reply(context.Background(), &Message{Type: "getArticleBySlug"})
	require.NoError(t, err)
	assert.Equal(t, "article not found", rsp.ErrorMessage())
	assert.Equal(t, map[string]interface{}{"error": "article not found"}, rsp.Data)
}

func TestReplySendsMessageUnchanged(t *testing.T) {
	transport := newStubTransport()
	transport.answer = func(msg *Message) *Response {
		return &Response{Type: msg.Type}
	}

	client := newTestClient(transport, time.Second)

	msg := &Message{
		Type:  "getArticlesFeed",
		Query: map[string]interface{}{"limit": 10},
		JWT:   "abc",
	}

	_, err := client.Reply(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, msg, transport.sent[0])
}

func TestReplyTimesOut(t *testing.T) {
	transport := newStubTransport()
	client := newTestClient(transport, 20*time.Millisecond)

	_, err := client.Reply(context.Background(), &Message{Type: "getTags"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, transport.withdrawn, "timed out call is withdrawn")
}

func TestReplyIsCancelable(t *testing.T) {
	client := newTestClient(newStubTransport(), 0)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Reply(ctx, &Message{Type: "getTags"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestResponseErrorMessage(t *testing.T) {
	assert.Empty(t, (&Response{}).ErrorMessage())
	assert.Empty(t, (&Response{Message: "text"}).ErrorMessage())
	assert.Empty(t, (&Response{Message: map[string]interface{}{"ok": true}}).ErrorMessage())
	assert.Equal(t, "nope", (&Response{Message: map[string]interface{}{"error": "nope"}}).ErrorMessage())
}
