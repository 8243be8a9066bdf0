// Package transporttest provides a scripted transport.Channel for tests.
package transporttest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/wolfeidau/raclient/internal/protocol"
)

// ErrUnscripted is returned for a request whose action has no response.
var ErrUnscripted = errors.New("no scripted response")

// HandlerFunc answers one decoded request.
type HandlerFunc func(req protocol.Request, authToken string) ([]byte, error)

// Call is one request observed by a Recorder.
type Call struct {
	Action    protocol.Action
	AuthToken string
	Request   protocol.Request
	Raw       []byte
	Fields    map[string]any
}

// Recorder is a transport.Channel that answers requests from per-action
// scripts and records every request it receives.
type Recorder struct {
	mu       sync.Mutex
	handlers map[protocol.Action]HandlerFunc
	calls    []Call
}

// New returns an empty Recorder; every action is unscripted.
func New() *Recorder {
	return &Recorder{handlers: make(map[protocol.Action]HandlerFunc)}
}

// Respond scripts action to always answer with body.
func (r *Recorder) Respond(action protocol.Action, body string) *Recorder {
	return r.Handle(action, func(protocol.Request, string) ([]byte, error) {
		return []byte(body), nil
	})
}

// Fail scripts action to fail at the transport with err.
func (r *Recorder) Fail(action protocol.Action, err error) *Recorder {
	return r.Handle(action, func(protocol.Request, string) ([]byte, error) {
		return nil, err
	})
}

// RespondWith scripts action to answer with resp encoded as JSON.
func (r *Recorder) RespondWith(action protocol.Action, resp protocol.Response) *Recorder {
	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		panic(fmt.Sprintf("transporttest: encode %s response: %v", action, err))
	}
	return r.Respond(action, string(data))
}

// Handle scripts action with fn.
func (r *Recorder) Handle(action protocol.Action, fn HandlerFunc) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = fn
	return r
}

func (r *Recorder) Send(ctx context.Context, msg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, token, err := protocol.DecodeRequest(msg)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(msg, &fields); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.calls = append(r.calls, Call{
		Action:    req.Action(),
		AuthToken: token,
		Request:   req,
		Raw:       append([]byte(nil), msg...),
		Fields:    fields,
	})
	fn, ok := r.handlers[req.Action()]
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrUnscripted, req.Action())
	}

	return fn(req, token)
}

// Calls returns a copy of the recorded requests in arrival order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallCount returns the number of requests received.
func (r *Recorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Count returns the number of requests received for action.
func (r *Recorder) Count(action protocol.Action) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if c.Action == action {
			n++
		}
	}
	return n
}

// Last returns the most recent request, or false when none arrived.
func (r *Recorder) Last() (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) == 0 {
		return Call{}, false
	}
	return r.calls[len(r.calls)-1], true
}

// Reset forgets recorded calls but keeps the scripts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
