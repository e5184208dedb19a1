// Package ws tracks live websocket sessions and fans events out to the
// lobby and to rooms. All session state is process-local; shared state
// stays in Redis.
package ws

import (
	"github.com/sirupsen/logrus"
)

// Session is one connected client. UserID is either a registered account id
// or a guest id.
type Session struct {
	UserID  string
	Name    string
	Rating  int
	IsGuest bool

	Cancel  func()
	OutChan chan map[string]interface{}
}

// NewSession builds a session with a buffered outbound queue.
func NewSession(userID, name string, rating int, isGuest bool, cancel func()) *Session {
	return &Session{
		UserID:  userID,
		Name:    name,
		Rating:  rating,
		IsGuest: isGuest,
		Cancel:  cancel,
		OutChan: make(chan map[string]interface{}, 64),
	}
}

// Write pushes a message onto the session's OutChan without blocking. A
// full queue drops the message rather than stalling a broadcast loop.
func (s *Session) Write(msg map[string]interface{}) {
	select {
	case s.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		logrus.Warnf("session %s: outbound queue full, dropped message type %q", s.UserID, msgType)
	}
}

// WriteEvent wraps a payload in the standard event envelope.
func (s *Session) WriteEvent(event string, payload map[string]interface{}) {
	msg := map[string]interface{}{"type": event}
	for k, v := range payload {
		msg[k] = v
	}
	s.Write(msg)
}

// WriteError sends a structured failure to this session only.
func (s *Session) WriteError(message, code string) {
	s.Write(map[string]interface{}{
		"type":    "error",
		"message": message,
		"code":    code,
	})
}
