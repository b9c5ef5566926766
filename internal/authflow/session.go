package authflow

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/teemow/meetmcp/internal/google"
)

// State is the lifecycle position of one authorization run.
type State int

const (
	StateIdle State = iota
	StateListening
	StateAwaitingCallback
	StateSucceeded
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

// session is the state of a single flow run. The outcome is published
// exactly once by closing done.
type session struct {
	consentURL string
	csrfState  string

	mu     sync.Mutex
	state  State
	bundle *google.CredentialBundle
	err    error
	conns  map[net.Conn]http.ConnState

	once       sync.Once
	done       chan struct{}
	exchanging atomic.Bool
}

func newSession(csrfState string) *session {
	return &session{
		csrfState: csrfState,
		state:     StateIdle,
		conns:     make(map[net.Conn]http.ConnState),
		done:      make(chan struct{}),
	}
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// advance moves to a non-terminal state unless the session already ended.
func (s *session) advance(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state = next
	}
}

// finish records the outcome. Only the first call has any effect; it
// reports whether it won.
func (s *session) finish(state State, bundle *google.CredentialBundle, err error) bool {
	won := false
	s.once.Do(func() {
		s.mu.Lock()
		s.state = state
		s.bundle = bundle
		s.err = err
		s.mu.Unlock()
		close(s.done)
		won = true
	})
	return won
}

func (s *session) result() (*google.CredentialBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bundle, s.err
}

// trackConn is installed as http.Server.ConnState.
func (s *session) trackConn(c net.Conn, cs http.ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cs {
	case http.StateHijacked, http.StateClosed:
		delete(s.conns, c)
	default:
		s.conns[c] = cs
	}
}

// closeIdleConns closes connections that are not serving a request, so a
// browser's keep-alive socket cannot hold the listener open. Active ones are
// left to drain through Shutdown.
func (s *session) closeIdleConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	closed := 0
	for c, cs := range s.conns {
		if cs == http.StateActive {
			continue
		}
		_ = c.Close()
		delete(s.conns, c)
		closed++
	}
	return closed
}

// closeAllConns force-closes whatever is left after the grace period.
func (s *session) closeAllConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
		delete(s.conns, c)
	}
}
