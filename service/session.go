package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State is a step of one invocation.
type State int

const (
	Authenticating State = iota
	Authenticated
	Encrypting
	Submitting
	Recorded
	Failed
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Encrypting:
		return "encrypting"
	case Submitting:
		return "submitting"
	case Recorded:
		return "recorded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State]State{
	Authenticating: Authenticated,
	Authenticated:  Encrypting,
	Encrypting:     Submitting,
	Submitting:     Recorded,
}

// Session tracks a single invocation. It is owned by one goroutine and
// discarded when the invocation returns.
type Session struct {
	ID      string
	Log     *logrus.Entry
	state   State
	history []State
	start   time.Time
}

// NewSession starts a session in the given state.
func NewSession(operation string, initial State, log *logrus.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		ID:      id,
		Log:     log.WithFields(logrus.Fields{"invocation": id, "operation": operation}),
		state:   initial,
		history: []State{initial},
		start:   time.Now(),
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// History returns every state visited, in order.
func (s *Session) History() []State {
	h := make([]State, len(s.history))
	copy(h, s.history)
	return h
}

// Elapsed is the time since the session started.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Transition moves to the next state; only forward steps are legal.
func (s *Session) Transition(to State) error {
	if next, ok := transitions[s.state]; !ok || next != to {
		return fmt.Errorf("illegal transition %s -> %s", s.state, to)
	}
	s.move(to)
	return nil
}

// Fail moves the session to Failed and returns err unchanged.
func (s *Session) Fail(err error) error {
	if s.state == Failed || s.state == Recorded {
		return err
	}
	s.move(Failed)
	s.Log.WithError(err).Warn("invocation failed")
	return err
}

func (s *Session) move(to State) {
	s.Log.WithFields(logrus.Fields{"from": s.state, "to": to}).Debug("state transition")
	s.state = to
	s.history = append(s.history, to)
}
