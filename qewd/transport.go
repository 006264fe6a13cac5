package qewd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Transport is the event-driven connection handle the Client drives.
type Transport interface {
	On(event string, handler func())
	Start(config StartConfig)
	// Send writes msg and registers callback for its answer. The returned
	// func withdraws the callback; it is safe to call after the answer
	// arrived.
	Send(msg *Message, callback func(*Response)) func()
	SetLogging(enabled bool)
}

type pendingCall struct {
	id       uint64
	callback func(*Response)
}

// WebSocketTransport speaks the QEWD message protocol over a gorilla
// websocket: one JSON object per text frame, answers correlated by the
// echoed message id, or by type in FIFO order when the backend does not
// echo ids. It redials at a fixed delay after the connection drops and
// re-registers with the session token it was given. Any registration that
// follows a reported disconnect also emits EventReregistered.
type WebSocketTransport struct {
	ReconnectDelay time.Duration

	logger logrus.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	logging   atomic.Bool
	down      atomic.Bool

	handlerMu sync.RWMutex
	handlers  map[string][]func()

	callCounter atomic.Uint64
	pendingMu   sync.Mutex
	pending     map[string][]*pendingCall

	connMu       sync.RWMutex
	conn         *websocket.Conn
	sessionToken string
	application  string
	writeMu      sync.Mutex
}

func NewWebSocketTransport(logger logrus.FieldLogger) *WebSocketTransport {
	ctx, cancel := context.WithCancel(context.Background())

	return &WebSocketTransport{
		ReconnectDelay: 2 * time.Second,

		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string][]func()),
		pending:  make(map[string][]*pendingCall),
	}
}

func (t *WebSocketTransport) On(event string, handler func()) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()

	t.handlers[event] = append(t.handlers[event], handler)
}

func (t *WebSocketTransport) emit(event string) {
	t.handlerMu.RLock()
	handlers := append([]func(){}, t.handlers[event]...)
	t.handlerMu.RUnlock()

	for _, handler := range handlers {
		handler()
	}
}

func (t *WebSocketTransport) SetLogging(enabled bool) {
	t.logging.Store(enabled)
}

func (t *WebSocketTransport) Start(config StartConfig) {
	t.startOnce.Do(func() {
		t.connMu.Lock()
		t.application = config.Application
		t.connMu.Unlock()

		t.wg.Add(1)
		go t.run(config)
	})
}

// Close stops redialing, closes the connection and waits for the reader.
func (t *WebSocketTransport) Close() {
	t.cancel()

	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()

	if conn != nil {
		conn.Close()
	}

	t.wg.Wait()
}

func (t *WebSocketTransport) Connected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()

	return t.conn != nil
}

func (t *WebSocketTransport) run(config StartConfig) {
	defer t.wg.Done()

	dialer := config.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	reportedDown := false

	for {
		t.logger.WithField("url", config.URL).Debug("connecting to qewd endpoint")

		conn, _, err := dialer.DialContext(t.ctx, config.URL, nil)
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}

			t.logger.WithError(err).WithField("url", config.URL).Warn("qewd dial failed")

			if !reportedDown {
				reportedDown = true
				t.markDown()
			}

			if !t.sleep() {
				return
			}

			continue
		}

		t.connMu.Lock()
		t.conn = conn
		t.connMu.Unlock()

		reportedDown = false

		if err := t.register(); err != nil {
			t.logger.WithError(err).Warn("qewd registration failed")
		}

		err = t.handleMessages(conn)

		t.connMu.Lock()
		t.conn = nil
		t.connMu.Unlock()

		conn.Close()
		t.dropPending()

		if t.ctx.Err() != nil {
			return
		}

		if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			t.logger.Info("qewd connection closed")
		} else if !strings.Contains(err.Error(), "use of closed network connection") {
			t.logger.WithError(err).Warn("qewd connection lost")
		}

		reportedDown = true
		t.markDown()

		if !t.sleep() {
			return
		}
	}
}

func (t *WebSocketTransport) markDown() {
	t.down.Store(true)
	t.emit(EventDisconnected)
}

func (t *WebSocketTransport) sleep() bool {
	select {
	case <-t.ctx.Done():
		return false
	case <-time.After(t.ReconnectDelay):
		return true
	}
}

// register announces the application, or re-attaches the previous session
// when one exists.
func (t *WebSocketTransport) register() error {
	t.connMu.RLock()
	msg := &Message{
		Type:        TypeRegister,
		Application: t.application,
	}

	if t.sessionToken != "" {
		msg.Type = TypeReregister
		msg.Token = t.sessionToken
	}
	t.connMu.RUnlock()

	return t.write(msg)
}

func (t *WebSocketTransport) handleMessages(conn *websocket.Conn) error {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if messageType != websocket.TextMessage {
			t.logger.Warn("received unexpected binary message")
			continue
		}

		t.logFrame("received", data)

		var rsp Response
		if err := json.Unmarshal(data, &rsp); err != nil {
			t.logger.WithError(err).Debug("failed to unmarshal qewd message")
			continue
		}

		switch rsp.Type {
		case TypeRegister:
			t.handleRegistration(&rsp)
		case TypeReregister:
			t.handleReregistration(&rsp)
		default:
			t.dispatch(&rsp)
		}
	}
}

func (t *WebSocketTransport) handleRegistration(rsp *Response) {
	if errMsg := rsp.ErrorMessage(); errMsg != "" {
		t.logger.WithField("error", errMsg).Error("qewd registration rejected")
		return
	}

	msg, _ := rsp.Message.(map[string]interface{})
	token, _ := msg["token"].(string)

	t.connMu.Lock()
	t.sessionToken = token
	t.connMu.Unlock()

	t.emit(EventRegistered)

	// a fresh session after an outage still ends the outage
	if t.down.Swap(false) {
		t.emit(EventReregistered)
	}
}

func (t *WebSocketTransport) handleReregistration(rsp *Response) {
	if errMsg := rsp.ErrorMessage(); errMsg != "" {
		// the backend forgot our session, start a new one
		t.logger.WithField("error", errMsg).Info("qewd session expired, registering again")

		t.connMu.Lock()
		t.sessionToken = ""
		t.connMu.Unlock()

		if err := t.register(); err != nil {
			t.logger.WithError(err).Warn("qewd registration failed")
		}

		return
	}

	t.down.Store(false)
	t.emit(EventReregistered)
}

func (t *WebSocketTransport) dispatch(rsp *Response) {
	call := t.takePending(rsp)
	if call == nil {
		t.logger.WithFields(logrus.Fields{
			"type": rsp.Type,
			"id":   rsp.ID,
		}).Debug("no pending call for qewd message")

		return
	}

	call.callback(rsp)
}

// takePending removes and returns the call rsp answers: the one with the
// echoed id, or the oldest call of the same type when no id was echoed.
func (t *WebSocketTransport) takePending(rsp *Response) *pendingCall {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	calls := t.pending[rsp.Type]

	idx := -1

	if rsp.ID == 0 {
		if len(calls) > 0 {
			idx = 0
		}
	} else {
		for i, call := range calls {
			if call.id == rsp.ID {
				idx = i
				break
			}
		}
	}

	if idx < 0 {
		return nil
	}

	call := calls[idx]
	t.removeAt(rsp.Type, idx)

	return call
}

// removeAt drops the pending call at idx; callers hold pendingMu.
func (t *WebSocketTransport) removeAt(msgType string, idx int) {
	calls := t.pending[msgType]

	if len(calls) == 1 {
		delete(t.pending, msgType)
		return
	}

	t.pending[msgType] = append(calls[:idx:idx], calls[idx+1:]...)
}

func (t *WebSocketTransport) dropPending() {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	count := 0
	for _, calls := range t.pending {
		count += len(calls)
	}

	if count > 0 {
		t.logger.WithField("count", count).Warn("dropping unanswered qewd calls")
	}

	t.pending = make(map[string][]*pendingCall)
}

func (t *WebSocketTransport) removePending(msgType string, id uint64) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	for i, call := range t.pending[msgType] {
		if call.id == id {
			t.removeAt(msgType, i)
			break
		}
	}
}

// Send stamps the session token and a fresh correlation id on msg and
// writes it. The callback runs on the reader goroutine once the answer
// arrives; it never runs when the connection is down, when the call was
// withdrawn, or when the connection drops before the answer.
func (t *WebSocketTransport) Send(msg *Message, callback func(*Response)) func() {
	t.connMu.RLock()
	out := *msg
	out.Token = t.sessionToken
	t.connMu.RUnlock()

	out.ID = t.callCounter.Add(1)

	withdraw := func() {}

	if callback != nil {
		t.pendingMu.Lock()
		t.pending[out.Type] = append(t.pending[out.Type], &pendingCall{
			id:       out.ID,
			callback: callback,
		})
		t.pendingMu.Unlock()

		withdraw = func() {
			t.removePending(out.Type, out.ID)
		}
	}

	if err := t.write(&out); err != nil {
		t.logger.WithError(err).WithField("type", out.Type).Warn("failed sending qewd message")
		withdraw()
	}

	return withdraw
}

func (t *WebSocketTransport) write(msg *Message) error {
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	t.logFrame("sending", data)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WebSocketTransport) logFrame(direction string, data []byte) {
	frameColor := color.FgGreen
	if direction == "sending" {
		frameColor = color.FgYellow
	}

	entry := t.logger.WithFields(logrus.Fields{
		"direction": direction,
		"body":      data,
		"color":     frameColor,
	})

	if t.logging.Load() {
		entry.Info("qewd frame")
	} else {
		entry.Debug("qewd frame")
	}
}
