package speech

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// NewSession opens a transport connection, performs the plaintext handshake
// and the structured negotiation, and returns a live streaming session.
// Every failure path closes the socket and returns a typed *Error. A
// negotiation rejection carries the service-assigned session id in the
// error for support diagnostics, but no usable session.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, &Error{Status: StatusInvalidInput, err: err}
	}
	p := cfg.protocol()

	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.address(cfg.Mode))
	if err != nil {
		return nil, classify(ctx, err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = conn.Close()
		}
	}()

	armDeadline := func() {
		if cfg.Timeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
		}
	}
	armDeadline()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(aLongTimeAgo) })
	defer stop()

	if cfg.Mode == Secure {
		tconn := tls.Client(conn, &tls.Config{ServerName: p.Host})
		if err := tconn.HandshakeContext(ctx); err != nil {
			cerr := classify(ctx, err)
			if cerr.Status == StatusCancelled || cerr.Status == StatusTimeout {
				return nil, cerr
			}
			return nil, &Error{Status: StatusTLS, err: err}
		}
		conn = tconn
	}

	if _, err := io.WriteString(conn, p.HandshakeToken); err != nil {
		return nil, classify(ctx, err)
	}
	reply, err := readHandshakeReply(conn)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if !strings.Contains(reply, p.HandshakeTrigger) {
		return nil, &Error{Status: StatusUnexpectedResponse, Response: reply,
			err: fmt.Errorf("handshake reply without %q", p.HandshakeTrigger)}
	}

	armDeadline()
	if err := writeMessage(conn, cfg.connectionRequest(p)); err != nil {
		return nil, classify(ctx, err)
	}
	resp := &connectionResponse{}
	if err := readMessage(conn, resp); err != nil {
		return nil, classify(ctx, err)
	}
	if resp.Code != codeOK {
		return nil, &Error{Status: StatusRejected, SessionID: resp.SessionID,
			err: fmt.Errorf("negotiation code %d: %s", resp.Code, resp.Message)}
	}
	_ = conn.SetDeadline(time.Time{})
	goapp.Log.Debug().Str("session", resp.SessionID).Str("addr", p.address(cfg.Mode)).Msg("session negotiated")
	ok = true
	return newSession(conn, cfg.Timeout, resp.SessionID), nil
}
