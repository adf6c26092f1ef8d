package speech

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	lengthSize = 4
	// maxMessageSize caps a declared frame length. Anything above it is a
	// corrupted stream, not a real message.
	maxMessageSize = 16 << 20
	// maxHandshakeSize caps the plaintext handshake reply.
	maxHandshakeSize = 16 << 10

	handshakeEnd = "\r\n\r\n"
)

// writeMessage serializes v and writes it with a length prefix in one call.
func writeMessage(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	buf := make([]byte, lengthSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[lengthSize:], data)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// readMessage reads one length-prefixed message into v. A peer closing
// before the declared length is satisfied surfaces as io.ErrUnexpectedEOF,
// never as a partially decoded object.
func readMessage(r io.Reader, v interface{}) error {
	var head [lengthSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return fmt.Errorf("read message size: %w", err)
	}
	size := binary.BigEndian.Uint32(head[:])
	if size > maxMessageSize {
		return fmt.Errorf("declared message size %d: %w", size, errMalformedMessage)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read message body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode message: %v: %w", err, errMalformedMessage)
	}
	return nil
}

// readHandshakeReply drains the stream until the blank-line terminator or
// peer close and returns the accumulated text. It reads byte by byte so the
// framed messages following the reply stay in the stream.
func readHandshakeReply(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			return sb.String(), fmt.Errorf("read handshake reply: %w", err)
		}
		sb.WriteByte(buf[0])
		if strings.HasSuffix(sb.String(), handshakeEnd) {
			return sb.String(), nil
		}
		if sb.Len() > maxHandshakeSize {
			return sb.String(), fmt.Errorf("handshake reply over %d bytes: %w", maxHandshakeSize, errMalformedMessage)
		}
	}
}
