package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDialError(t *testing.T) {
	err := classifyDialError(errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	err = classifyDialError(errors.New("dial tcp 10.0.0.5:22: connect: connection refused"))
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestWithDefaultPort(t *testing.T) {
	assert.Equal(t, "esxi1:22", withDefaultPort("esxi1"))
	assert.Equal(t, "esxi1:2222", withDefaultPort("esxi1:2222"))
}

func TestPasswordInteractive(t *testing.T) {
	challenge := passwordInteractive("hunter2")
	answers, err := challenge("root", "", []string{"Password:", "Verification code:"}, []bool{false, false})
	require.NoError(t, err)
	assert.Equal(t, []string{"hunter2", "hunter2"}, answers)

	answers, err = challenge("root", "", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestRunnerSessionBudget(t *testing.T) {
	r := newSSHRunner(50*time.Millisecond, 1)

	// Hold the only session slot; the next call must give up within its
	// timeout instead of dialing.
	require.NoError(t, r.sessions.Acquire(context.Background(), 1))
	defer r.sessions.Release(1)

	_, err := r.Run("127.0.0.1", "root", "hunter2", "true")
	assert.ErrorIs(t, err, ErrTimeout)
}
