package session

import (
	"context"

	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

// TokenSource adapts the session to oauth2 so HTTP clients built with
// oauth2.NewClient send the session bearer token. Each Token call goes
// through IsAuthenticated and so may refresh.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	if !ts.m.IsAuthenticated(ts.ctx) {
		return nil, ErrNotAuthenticated
	}

	ts.m.mu.RLock()
	defer ts.m.mu.RUnlock()

	if ts.m.token == nil {
		return nil, ErrNotAuthenticated
	}

	token := *ts.m.token
	return &token, nil
}
