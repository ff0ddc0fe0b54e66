package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/semaphore"
)

// Transport failures surfaced to the scrape handler.
var (
	ErrConnectionFailed     = errors.New("ssh connection failed")
	ErrAuthenticationFailed = errors.New("ssh authentication failed")
	ErrCommandFailed        = errors.New("remote command failed")
	ErrTimeout              = errors.New("remote command timed out")
)

// commandRunner executes one non-interactive command on a target host and
// returns its captured stdout.
type commandRunner interface {
	Run(host, user, password, cmd string) (string, error)
}

type sshRunner struct {
	timeout  time.Duration
	sessions *semaphore.Weighted
}

func newSSHRunner(timeout time.Duration, maxSessions int64) *sshRunner {
	return &sshRunner{
		timeout:  timeout,
		sessions: semaphore.NewWeighted(maxSessions),
	}
}

func (r *sshRunner) Run(host, user, password, cmd string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	// Bound the number of simultaneous sessions so a scrape storm cannot
	// exhaust the process. Waiting counts against the call's timeout.
	if err := r.sessions.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: waiting for a session slot", ErrTimeout)
	}
	defer r.sessions.Release(1)

	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			// ESXi hosts often only offer keyboard-interactive.
			ssh.KeyboardInteractive(passwordInteractive(password)),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         r.timeout,
	}

	client, err := ssh.Dial("tcp", withDefaultPort(host), config)
	if err != nil {
		return "", classifyDialError(err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCommandFailed, err)
		}
	case <-ctx.Done():
		session.Close()
		return "", fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}
	return stdout.String(), nil
}

// classifyDialError distinguishes auth rejection from plain connectivity
// problems; x/crypto/ssh does not expose a typed error for this.
func classifyDialError(err error) error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}

// passwordInteractive answers every keyboard-interactive prompt with the
// target's password.
func passwordInteractive(password string) ssh.KeyboardInteractiveChallenge {
	return func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = password
		}
		return answers, nil
	}
}

func withDefaultPort(host string) string {
	if strings.Contains(host, ":") {
		return host
	}
	return host + ":22"
}
