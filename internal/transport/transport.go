// Package transport provides the channel the client talks to a RaCore server
// through. A Channel is strictly request then response: there is no request
// id correlation, so a Channel implementation must never interleave two
// in-flight requests on one connection.
package transport

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("channel closed")
)

// Channel sends one request message and blocks until its response arrives.
type Channel interface {
	Send(ctx context.Context, msg []byte) ([]byte, error)
}

// ChannelFunc adapts a function to a Channel.
type ChannelFunc func(ctx context.Context, msg []byte) ([]byte, error)

func (f ChannelFunc) Send(ctx context.Context, msg []byte) ([]byte, error) {
	return f(ctx, msg)
}

// Serialized guards a Channel with a mutex so concurrent callers take turns.
type Serialized struct {
	mu   sync.Mutex
	next Channel
}

// Serialize wraps ch so that at most one Send is in flight at a time.
func Serialize(ch Channel) *Serialized {
	return &Serialized{next: ch}
}

func (s *Serialized) Send(ctx context.Context, msg []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.next.Send(ctx, msg)
}
