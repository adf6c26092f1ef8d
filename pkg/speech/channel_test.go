package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := &connectionRequest{APIKey: "k", App: "test", UUID: "u1", Topic: "queries"}
	if err := writeMessage(&buf, in); err != nil {
		t.Fatalf("writeMessage() failed: %v", err)
	}
	if got := binary.BigEndian.Uint32(buf.Bytes()); int(got) != buf.Len()-lengthSize {
		t.Errorf("length prefix = %d, body = %d", got, buf.Len()-lengthSize)
	}
	out := &connectionRequest{}
	if err := readMessage(&buf, out); err != nil {
		t.Fatalf("readMessage() failed: %v", err)
	}
	if *out != *in {
		t.Errorf("readMessage() = %+v, want %+v", out, in)
	}
}

func TestReadMessage_Faults(t *testing.T) {
	full := func() []byte {
		var buf bytes.Buffer
		_ = writeMessage(&buf, &connectionResponse{Code: 200, SessionID: "abc"})
		return buf.Bytes()
	}()
	oversized := make([]byte, lengthSize)
	binary.BigEndian.PutUint32(oversized, maxMessageSize+1)
	garbage := func() []byte {
		body := []byte("{not json")
		res := make([]byte, lengthSize+len(body))
		binary.BigEndian.PutUint32(res, uint32(len(body)))
		copy(res[lengthSize:], body)
		return res
	}()

	tests := []struct {
		name       string
		data       []byte
		wantStatus Status
	}{
		{name: "empty stream", data: nil, wantStatus: StatusBrokenMessage},
		{name: "partial prefix", data: full[:2], wantStatus: StatusBrokenMessage},
		{name: "truncated body", data: full[:len(full)-3], wantStatus: StatusBrokenMessage},
		{name: "oversized length", data: oversized, wantStatus: StatusBrokenMessage},
		{name: "garbage body", data: garbage, wantStatus: StatusBrokenMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := readMessage(bytes.NewReader(tt.data), &connectionResponse{})
			if err == nil {
				t.Fatal("readMessage() succeeded unexpectedly")
			}
			if got := classify(nil, err).Status; got != tt.wantStatus {
				t.Errorf("classified as %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestReadHandshakeReply(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		want     string
		wantRest string
		wantErr  bool
	}{
		{name: "terminator", data: "HTTP/1.1 101 Switching Protocols\r\n\r\nEXTRA",
			want: "HTTP/1.1 101 Switching Protocols\r\n\r\n", wantRest: "EXTRA"},
		{name: "peer close", data: "HTTP/1.1 404 Not Found", want: "HTTP/1.1 404 Not Found"},
		{name: "nothing", data: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewBufferString(tt.data)
			got, err := readHandshakeReply(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("readHandshakeReply() succeeded unexpectedly")
				}
				if !errors.Is(err, io.EOF) {
					t.Errorf("err = %v, want EOF", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("readHandshakeReply() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if rest := r.String(); rest != tt.wantRest {
				t.Errorf("over-read: %q left, want %q", rest, tt.wantRest)
			}
		})
	}
}
