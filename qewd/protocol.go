package qewd

import (
	"github.com/gorilla/websocket"
)

// Lifecycle events emitted by a Transport.
const (
	EventRegistered   = "ewd-registered"
	EventReregistered = "ewd-reregistered"
	EventDisconnected = "socketDisconnected"
)

// Message types reserved for session handling.
const (
	TypeRegister   = "ewd-register"
	TypeReregister = "ewd-reregister"
)

// Message is one frame sent to the backend. Type is the discriminator the
// backend dispatches on; Token is the session token and ID the correlation
// id the transport stamps on every frame after registration.
type Message struct {
	Type        string                 `json:"type"`
	ID          uint64                 `json:"id,omitempty"`
	Token       string                 `json:"token,omitempty"`
	Application string                 `json:"application,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Query       map[string]interface{} `json:"query,omitempty"`
	Body        map[string]interface{} `json:"body,omitempty"`
	Slug        string                 `json:"slug,omitempty"`
	JWT         string                 `json:"JWT,omitempty"`
}

// Response is one frame received from the backend. ID echoes the id of the
// message it answers; backends that do not echo it are correlated by type
// in FIFO order. Data is filled by Client.Reply from Message so both
// transports expose the result the same way.
type Response struct {
	Type     string      `json:"type"`
	ID       uint64      `json:"id,omitempty"`
	Finished bool        `json:"finished,omitempty"`
	Message  interface{} `json:"message,omitempty"`
	Data     interface{} `json:"-"`
}

// ErrorMessage returns message.error when the backend answered with an
// error-shaped message, "" otherwise. Such responses still resolve Reply
// successfully.
func (r *Response) ErrorMessage() string {
	msg, ok := r.Message.(map[string]interface{})
	if !ok {
		return ""
	}

	if errMsg, ok := msg["error"].(string); ok {
		return errMsg
	}

	return ""
}

// StartConfig is passed to Transport.Start.
type StartConfig struct {
	Application string
	URL         string
	Dialer      *websocket.Dialer
}
