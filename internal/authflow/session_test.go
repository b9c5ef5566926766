package authflow

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/meetmcp/internal/google"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateIdle, "idle", false},
		{StateListening, "listening", false},
		{StateAwaitingCallback, "awaiting_callback", false},
		{StateSucceeded, "succeeded", true},
		{StateFailed, "failed", true},
		{StateTimedOut, "timed_out", true},
		{State(42), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}

func TestSession_FinishOnce(t *testing.T) {
	s := newSession("state")
	s.advance(StateAwaitingCallback)

	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- s.finish(StateSucceeded, &google.CredentialBundle{AccessToken: "a"}, nil)
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for won := range wins {
		if won {
			count++
		}
	}
	assert.Equal(t, 1, count)

	assert.False(t, s.finish(StateTimedOut, nil, ErrTimedOut))
	assert.Equal(t, StateSucceeded, s.State())
	bundle, err := s.result()
	assert.NoError(t, err)
	assert.Equal(t, "a", bundle.AccessToken)

	select {
	case <-s.done:
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestSession_AdvanceIgnoredAfterTerminal(t *testing.T) {
	s := newSession("state")
	s.finish(StateFailed, nil, ErrCallback)
	s.advance(StateAwaitingCallback)
	assert.Equal(t, StateFailed, s.State())
}

func TestSession_CloseIdleConnsSkipsActive(t *testing.T) {
	s := newSession("state")

	idleServer, idleClient := net.Pipe()
	activeServer, activeClient := net.Pipe()
	defer idleClient.Close()
	defer activeClient.Close()
	defer activeServer.Close()

	s.trackConn(idleServer, http.StateIdle)
	s.trackConn(activeServer, http.StateActive)

	assert.Equal(t, 1, s.closeIdleConns())

	_, err := idleServer.Write([]byte("x"))
	assert.Error(t, err, "idle connection should be closed")
	assert.Len(t, s.conns, 1)

	s.trackConn(activeServer, http.StateClosed)
	assert.Empty(t, s.conns)
}

func TestCallbackError(t *testing.T) {
	err := error(&CallbackError{Code: "access_denied"})
	assert.True(t, errors.Is(err, ErrCallback))
	assert.Contains(t, err.Error(), "access_denied")

	withDesc := &CallbackError{Code: "access_denied", Description: "user declined"}
	assert.Contains(t, withDesc.Error(), "user declined")
}
