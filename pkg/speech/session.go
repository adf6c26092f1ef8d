package speech

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// aLongTimeAgo is a deadline in the past used to abort pending socket I/O
// on context cancellation.
var aLongTimeAgo = time.Unix(1, 0)

// Session is one live streaming recognition connection. It owns the
// transport exclusively. The caller must not run SendChunk and
// ReceiveResult concurrently - both directions share one stream handle and
// the protocol allows a single in-flight operation per session.
type Session struct {
	conn    net.Conn
	timeout time.Duration
	id      string

	disposed atomic.Bool
	sentLast bool
}

func newSession(conn net.Conn, timeout time.Duration, id string) *Session {
	return &Session{conn: conn, timeout: timeout, id: id}
}

// ID returns the service-assigned session identifier.
func (s *Session) ID() string { return s.id }

// Active reports whether the session can still be used for network operations.
func (s *Session) Active() bool { return !s.disposed.Load() }

// SendChunk uploads one bounded unit of audio. A nil payload is accepted
// only with last set and acts as the "no more audio" terminator. Oversized
// or absent payloads are rejected before any byte reaches the transport.
func (s *Session) SendChunk(ctx context.Context, data []byte, last bool) error {
	if len(data) > MaxChunkSize {
		return &Error{Status: StatusInvalidInput, SessionID: s.id,
			err: fmt.Errorf("chunk of %d bytes over the %d limit", len(data), MaxChunkSize)}
	}
	if data == nil && !last {
		return &Error{Status: StatusInvalidInput, SessionID: s.id,
			err: errors.New("no audio data and not the last chunk")}
	}
	if s.disposed.Load() {
		return &Error{Status: StatusDisposed, SessionID: s.id}
	}
	stop := s.armDeadline(ctx)
	defer stop()
	if err := writeMessage(s.conn, &chunkMessage{Audio: data, LastChunk: last}); err != nil {
		return s.fault(ctx, err, true)
	}
	if last {
		s.sentLast = true
	}
	return nil
}

// ReceiveResult reads the next recognition result. Zero, one or many
// results may follow a single chunk, the caller polls repeatedly. After the
// final result of the last chunk the session disposes itself - the service
// has nothing more to say.
func (s *Session) ReceiveResult(ctx context.Context) (*RecognitionResult, error) {
	if s.disposed.Load() {
		return nil, &Error{Status: StatusDisposed, SessionID: s.id}
	}
	stop := s.armDeadline(ctx)
	defer stop()
	res := &RecognitionResult{}
	if err := readMessage(s.conn, res); err != nil {
		return nil, s.fault(ctx, err, false)
	}
	if res.Final && s.sentLast {
		_ = s.Close()
	}
	return res, nil
}

// Close disposes the session and releases the transport. Safe to call
// multiple times.
func (s *Session) Close() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}
	goapp.Log.Debug().Str("session", s.id).Msg("session closed")
	return s.conn.Close()
}

// armDeadline applies the socket timeout and hooks context cancellation to
// the socket deadline. The returned stop func restores the deadline when a
// cancellation fired mid-operation, the session stays usable.
func (s *Session) armDeadline(ctx context.Context) func() {
	if s.timeout > 0 {
		_ = s.conn.SetDeadline(time.Now().Add(s.timeout))
	} else {
		_ = s.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(aLongTimeAgo)
	})
	return func() {
		if !stop() {
			_ = s.conn.SetDeadline(time.Time{})
		}
	}
}

// fault classifies err and applies the session lifecycle policy: timeouts
// and cancellations keep the session, socket faults dispose it, a truncated
// message disposes only on the send side (the caller may retry a read).
func (s *Session) fault(ctx context.Context, err error, disposeOnBroken bool) error {
	cerr := classify(ctx, err)
	cerr.SessionID = s.id
	switch cerr.Status {
	case StatusTimeout, StatusCancelled:
	case StatusBrokenMessage:
		if disposeOnBroken {
			_ = s.Close()
		}
	default:
		_ = s.Close()
	}
	return cerr
}
