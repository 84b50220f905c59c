package service

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSession_Transitions(t *testing.T) {
	s := NewSession(OpRecordVote, Authenticated, testLogger())
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, Authenticated, s.State())

	require.NoError(t, s.Transition(Encrypting))
	require.NoError(t, s.Transition(Submitting))
	require.NoError(t, s.Transition(Recorded))
	assert.Equal(t, []State{Authenticated, Encrypting, Submitting, Recorded}, s.History())

	// Recorded is terminal.
	assert.Error(t, s.Transition(Failed))
	s.Fail(errors.New("late"))
	assert.Equal(t, Recorded, s.State())
}

func TestSession_IllegalTransition(t *testing.T) {
	s := NewSession(OpAuthenticate, Authenticating, testLogger())
	assert.Error(t, s.Transition(Submitting))
	assert.Error(t, s.Transition(Authenticating))
	assert.Equal(t, Authenticating, s.State())
}

func TestSession_Fail(t *testing.T) {
	s := NewSession(OpAuthenticate, Authenticating, testLogger())
	cause := errors.New("boom")
	assert.Same(t, cause, s.Fail(cause))
	assert.Equal(t, Failed, s.State())
	assert.Error(t, s.Transition(Authenticated))

	s.Fail(errors.New("again"))
	assert.Equal(t, []State{Authenticating, Failed}, s.History())
}

func TestSession_UniqueIDs(t *testing.T) {
	a := NewSession(OpAuthenticate, Authenticating, testLogger())
	b := NewSession(OpAuthenticate, Authenticating, testLogger())
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "state(42)", State(42).String())
}
