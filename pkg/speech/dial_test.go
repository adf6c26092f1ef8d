package speech

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// startStub runs a protocol stub on a loopback port and returns endpoint
// constants pointing at it.
func startStub(t *testing.T, handler func(c net.Conn)) Protocol {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go handler(c)
		}
	}()
	p := DefaultProtocol()
	p.Host = "127.0.0.1"
	p.PlainPort = ln.Addr().(*net.TCPAddr).Port
	return p
}

func stubConfig(p Protocol) SessionConfig {
	return SessionConfig{
		Protocol: &p,
		Mode:     Insecure,
		APIKey:   "key-1",
		App:      "test-app",
		UserID:   "8cdbb656-0af4-448f-aec4-d1f7bc32c1f1",
		Device:   "test-device",
		Model:    ModelQueries,
		Format:   FormatPcm16K,
		Language: LanguageRussian,
		Timeout:  2 * time.Second,
	}
}

func readToken(c net.Conn) error {
	buf := make([]byte, 1)
	var got strings.Builder
	for !strings.HasSuffix(got.String(), handshakeEnd) {
		if _, err := io.ReadFull(c, buf); err != nil {
			return err
		}
		got.WriteByte(buf[0])
	}
	return nil
}

func TestNewSession_EndToEnd(t *testing.T) {
	gotReq := make(chan *connectionRequest, 1)
	p := startStub(t, func(c net.Conn) {
		defer c.Close()
		if err := readToken(c); err != nil {
			return
		}
		_, _ = io.WriteString(c, "HTTP/1.1 101 Switching Protocols\r\n\r\n")
		req := &connectionRequest{}
		if err := readMessage(c, req); err != nil {
			return
		}
		gotReq <- req
		_ = writeMessage(c, &connectionResponse{Code: 200, SessionID: "abc123"})
		_, _ = io.Copy(io.Discard, c)
	})

	sess, err := NewSession(context.Background(), stubConfig(p))
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	defer sess.Close()

	if sess.ID() != "abc123" {
		t.Errorf("ID() = %q, want %q", sess.ID(), "abc123")
	}
	if !sess.Active() {
		t.Error("session not active")
	}
	req := <-gotReq
	if req.Topic != "queries" || req.Lang != "ru-RU" || req.Format != string(FormatPcm16K) {
		t.Errorf("negotiation request = %+v", req)
	}
	if !req.PartialResults {
		t.Error("partial results not enabled by default")
	}
}

func TestNewSession_HandshakeWithoutTrigger(t *testing.T) {
	sawClose := make(chan struct{})
	p := startStub(t, func(c net.Conn) {
		defer c.Close()
		if err := readToken(c); err != nil {
			return
		}
		_, _ = io.WriteString(c, "HTTP/1.1 404 Not Found\r\n\r\n")
		// the client must tear the transport down
		_, _ = io.Copy(io.Discard, c)
		close(sawClose)
	})

	_, err := NewSession(context.Background(), stubConfig(p))
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("NewSession() returned %T, want *Error", err)
	}
	if serr.Status != StatusUnexpectedResponse {
		t.Fatalf("status = %v, want %v", serr.Status, StatusUnexpectedResponse)
	}
	if !strings.Contains(serr.Response, "404 Not Found") {
		t.Errorf("raw response lost: %q", serr.Response)
	}
	select {
	case <-sawClose:
	case <-time.After(2 * time.Second):
		t.Error("transport not closed after handshake failure")
	}
}

func TestNewSession_TLSFault(t *testing.T) {
	sawClose := make(chan struct{})
	p := startStub(t, func(c net.Conn) {
		defer c.Close()
		// answer the client hello with plain text, the TLS handshake must fail
		_, _ = io.WriteString(c, "HTTP/1.1 400 Bad Request\r\n\r\n")
		_, _ = io.Copy(io.Discard, c)
		close(sawClose)
	})
	p.SecurePort = p.PlainPort
	cfg := stubConfig(p)
	cfg.Mode = Secure

	_, err := NewSession(context.Background(), cfg)
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("NewSession() returned %T, want *Error", err)
	}
	if serr.Status != StatusTLS {
		t.Fatalf("status = %v, want %v", serr.Status, StatusTLS)
	}
	select {
	case <-sawClose:
	case <-time.After(2 * time.Second):
		t.Error("transport not closed after TLS failure")
	}
}

func TestNewSession_Rejected(t *testing.T) {
	p := startStub(t, func(c net.Conn) {
		defer c.Close()
		if err := readToken(c); err != nil {
			return
		}
		_, _ = io.WriteString(c, "HTTP/1.1 101 Switching Protocols\r\n\r\n")
		if err := readMessage(c, &connectionRequest{}); err != nil {
			return
		}
		_ = writeMessage(c, &connectionResponse{Code: 403, SessionID: "diag-17", Message: "bad key"})
	})

	_, err := NewSession(context.Background(), stubConfig(p))
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("NewSession() returned %T, want *Error", err)
	}
	if serr.Status != StatusRejected {
		t.Fatalf("status = %v, want %v", serr.Status, StatusRejected)
	}
	// the assigned id stays available for support even on rejection
	if serr.SessionID != "diag-17" {
		t.Errorf("SessionID = %q, want %q", serr.SessionID, "diag-17")
	}
}

func TestNewSession_TruncatedNegotiation(t *testing.T) {
	p := startStub(t, func(c net.Conn) {
		if err := readToken(c); err != nil {
			return
		}
		_, _ = io.WriteString(c, "HTTP/1.1 101 Switching Protocols\r\n\r\n")
		_ = readMessage(c, &connectionRequest{})
		_ = c.Close() // drop before answering
	})

	_, err := NewSession(context.Background(), stubConfig(p))
	if got := StatusOf(err); got != StatusBrokenMessage {
		t.Fatalf("status = %v, want %v", got, StatusBrokenMessage)
	}
}

func TestNewSession_ValidatesConfig(t *testing.T) {
	cfg := stubConfig(DefaultProtocol())
	cfg.APIKey = ""
	_, err := NewSession(context.Background(), cfg)
	if got := StatusOf(err); got != StatusInvalidInput {
		t.Fatalf("status = %v, want %v", got, StatusInvalidInput)
	}
}

func TestNewSession_StreamOverStub(t *testing.T) {
	p := startStub(t, func(c net.Conn) {
		defer c.Close()
		if err := readToken(c); err != nil {
			return
		}
		_, _ = io.WriteString(c, "HTTP/1.1 101 Switching Protocols\r\n\r\n")
		if err := readMessage(c, &connectionRequest{}); err != nil {
			return
		}
		_ = writeMessage(c, &connectionResponse{Code: 200, SessionID: "abc123"})
		for {
			chunk := &chunkMessage{}
			if err := readMessage(c, chunk); err != nil {
				return
			}
			_ = writeMessage(c, &RecognitionResult{
				Final:      chunk.LastChunk,
				Hypotheses: []Hypothesis{{Confidence: 0.87, NormalizedText: "привет мир"}},
			})
			if chunk.LastChunk {
				return
			}
		}
	})

	ctx := context.Background()
	sess, err := NewSession(ctx, stubConfig(p))
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	defer sess.Close()

	if err := sess.SendChunk(ctx, []byte("pcm-bytes"), false); err != nil {
		t.Fatalf("SendChunk() failed: %v", err)
	}
	res, err := sess.ReceiveResult(ctx)
	if err != nil {
		t.Fatalf("ReceiveResult() failed: %v", err)
	}
	if res.Final {
		t.Error("intermediate result marked final")
	}
	if err := sess.SendChunk(ctx, nil, true); err != nil {
		t.Fatalf("last SendChunk() failed: %v", err)
	}
	res, err = sess.ReceiveResult(ctx)
	if err != nil {
		t.Fatalf("final ReceiveResult() failed: %v", err)
	}
	if !res.Final {
		t.Error("last result not final")
	}
	if best, ok := res.Best(); !ok || best.NormalizedText != "привет мир" {
		t.Errorf("best = %+v", best)
	}
	if sess.Active() {
		t.Error("session still active after final result")
	}
}
