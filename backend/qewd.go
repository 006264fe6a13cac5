package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethpandaops/conduit-client/metrics"
	"github.com/ethpandaops/conduit-client/qewd"
	"github.com/ethpandaops/conduit-client/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// sessions tracks QEWD session tokens across connections so a client can
// re-attach after a reconnect.
type sessions struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func newSessions() *sessions {
	return &sessions{tokens: make(map[string]string)}
}

func (s *sessions) create(application string) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = application

	return token
}

func (s *sessions) valid(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tokens[token]

	return ok
}

// Forget drops a session, forcing the owner to register again.
func (s *sessions) forget(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
}

type qewdConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *qewdConn) send(rsp *qewd.Response) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(rsp)
}

type QEWDHandler struct {
	backend  *Backend
	sessions *sessions
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
}

func newQEWDHandler(backend *Backend, logger logrus.FieldLogger) *QEWDHandler {
	return &QEWDHandler{
		backend:  backend,
		sessions: newSessions(),
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ForgetSession invalidates a session token.
func (h *QEWDHandler) ForgetSession(token string) {
	h.sessions.forget(token)
}

func (h *QEWDHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	defer conn.Close()

	logger := h.logger.WithField("remote", conn.RemoteAddr())
	logger.Info("qewd connection established")

	c := &qewdConn{conn: conn}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Info("qewd connection closed")
			} else {
				logger.WithError(err).Debug("qewd read error")
			}

			return
		}

		if messageType != websocket.TextMessage {
			logger.Warn("received unexpected binary message")
			continue
		}

		var msg qewd.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.WithError(err).Debug("failed to unmarshal qewd message")
			continue
		}

		start := time.Now()
		rsp := h.handleMessage(&msg)

		if err := c.send(rsp); err != nil {
			logger.WithError(err).Warn("failed sending qewd response")
			return
		}

		status := http.StatusOK
		if rsp.ErrorMessage() != "" {
			status = http.StatusBadRequest
		}

		metrics.ObserveRequest(metrics.NewRequestEntry("qewd", "WS", msg.Type, status, 0, time.Since(start)))
	}
}

func errorMessage(message string) map[string]interface{} {
	return map[string]interface{}{"error": message}
}

func (h *QEWDHandler) handleMessage(msg *qewd.Message) *qewd.Response {
	rsp := &qewd.Response{
		Type:     msg.Type,
		ID:       msg.ID,
		Finished: true,
	}

	switch msg.Type {
	case qewd.TypeRegister:
		token := h.sessions.create(msg.Application)
		h.logger.WithField("application", msg.Application).Debug("qewd session registered")

		rsp.Message = map[string]interface{}{"token": token}

	case qewd.TypeReregister:
		if !h.sessions.valid(msg.Token) {
			rsp.Message = errorMessage("unknown session")
		} else {
			rsp.Message = map[string]interface{}{"ok": true}
		}

	default:
		if !h.sessions.valid(msg.Token) {
			rsp.Message = errorMessage("invalid session token")
			return rsp
		}

		call, err := callFromMessage(msg)
		if err != nil {
			rsp.Message = errorMessage(err.Error())
			return rsp
		}

		doc, err := h.backend.Handle(call)
		if err != nil {
			rsp.Message = errorMessage(err.Error())
			return rsp
		}

		rsp.Message = doc
	}

	return rsp
}

func callFromMessage(msg *qewd.Message) (*Call, error) {
	op, err := types.ParseOperation(msg.Type)
	if err != nil {
		return nil, err
	}

	call := &Call{
		Operation: op,
		Token:     msg.JWT,
		Slug:      paramString(msg.Params, "slug"),
		CommentID: paramString(msg.Params, "id"),
	}

	if msg.Slug != "" {
		call.Slug = msg.Slug
	}

	if msg.Query != nil {
		call.Query = make(map[string]string, len(msg.Query))

		for key, value := range msg.Query {
			if value != nil {
				call.Query[key] = fmt.Sprint(value)
			}
		}
	}

	switch op {
	case types.OpCreateArticle, types.OpUpdateArticle:
		article, _ := msg.Body["article"].(map[string]interface{})
		call.Article = parseArticleFields(article)
	case types.OpCreateComment:
		call.Comment = commentText(msg.Body)
	}

	return call, nil
}

func paramString(params map[string]interface{}, key string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
