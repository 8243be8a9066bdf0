package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a request to the server.
	defaultWriteWait = 10 * time.Second
	// Time allowed to wait for the response when ctx has no deadline.
	defaultResponseWait = 60 * time.Second
	// Connection attempts made by Dial before giving up.
	defaultDialAttempts = 3
)

// WebSocketConfig configures a WebSocket channel.
type WebSocketConfig struct {
	URL          string
	Header       http.Header
	Dialer       *websocket.Dialer
	WriteWait    time.Duration
	ResponseWait time.Duration
	DialAttempts uint
}

// WebSocket is a Channel over one websocket connection. Send holds a mutex
// for the full write/read exchange. A broken connection is dropped and
// redialed on the next Send; the failed request itself is never resent.
type WebSocket struct {
	cfg WebSocketConfig

	mu     sync.Mutex
	conn   *websocket.Conn
	connID uuid.UUID
	closed bool
}

// Dial connects to cfg.URL, retrying with exponential backoff up to
// cfg.DialAttempts times.
func Dial(ctx context.Context, cfg WebSocketConfig) (*WebSocket, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("websocket URL is required")
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.ResponseWait <= 0 {
		cfg.ResponseWait = defaultResponseWait
	}
	if cfg.DialAttempts == 0 {
		cfg.DialAttempts = defaultDialAttempts
	}

	ws := &WebSocket{cfg: cfg}

	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		return ws.dial(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(cfg.DialAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.URL, err)
	}

	ws.setConn(conn)

	return ws, nil
}

func (w *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := w.cfg.Dialer.DialContext(ctx, w.cfg.URL, w.cfg.Header)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// the server answered and refused us, redialing will not help
			return nil, backoff.Permanent(fmt.Errorf("handshake rejected with HTTP %d: %w", resp.StatusCode, err))
		}
		log.Debug().Err(err).Str("url", w.cfg.URL).Msg("websocket dial failed")
		return nil, err
	}
	return conn, nil
}

func (w *WebSocket) setConn(conn *websocket.Conn) {
	w.conn = conn
	w.connID = uuid.New()

	log.Debug().
		Str("url", w.cfg.URL).
		Str("conn_id", w.connID.String()).
		Msg("websocket connected")
}

// Send writes msg as a text message and returns the next message read.
func (w *WebSocket) Send(ctx context.Context, msg []byte) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}

	if w.conn == nil {
		conn, err := w.dial(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reconnect to %s: %w", w.cfg.URL, err)
		}
		w.setConn(conn)
	}

	resp, err := w.exchange(ctx, msg)
	if err != nil {
		log.Debug().
			Err(err).
			Str("conn_id", w.connID.String()).
			Msg("dropping websocket connection after failed exchange")
		w.conn.Close()
		w.conn = nil
		return nil, err
	}

	return resp, nil
}

func (w *WebSocket) exchange(ctx context.Context, msg []byte) ([]byte, error) {
	conn := w.conn

	// unblock the read or write when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		now := time.Now()
		_ = conn.SetWriteDeadline(now)
		_ = conn.SetReadDeadline(now)
	})
	defer stop()

	now := time.Now()
	writeDeadline := now.Add(w.cfg.WriteWait)
	readDeadline := now.Add(w.cfg.ResponseWait)
	if deadline, ok := ctx.Deadline(); ok {
		if deadline.Before(writeDeadline) {
			writeDeadline = deadline
		}
		readDeadline = deadline
	}

	if err := conn.SetWriteDeadline(writeDeadline); err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("failed to write request: %w", err))
	}

	if err := conn.SetReadDeadline(readDeadline); err != nil {
		return nil, err
	}
	_, resp, err := conn.ReadMessage()
	if err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("failed to read response: %w", err))
	}

	return resp, nil
}

// ctxErr prefers the context error when ctx ended the exchange.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// Close sends a close frame and closes the connection. Further Sends fail
// with ErrClosed.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.conn == nil {
		return nil
	}

	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(w.cfg.WriteWait))
	err := w.conn.Close()
	w.conn = nil
	return err
}
