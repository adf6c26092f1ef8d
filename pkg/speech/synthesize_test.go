package speech

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesisRequest_HTTPRequest(t *testing.T) {
	tests := []struct {
		name    string
		input   SynthesisRequest
		want    map[string]string
		wantErr bool
	}{
		{name: "full",
			input: SynthesisRequest{Text: "привет, мир", Voice: "oksana", Language: LanguageRussian,
				Format: FormatPcm16K, Emotion: "good", Speed: 1.2},
			want: map[string]string{"text": "привет, мир", "speaker": "oksana", "lang": "ru-RU",
				"emotion": "good", "speed": "1.2", "key": "k1"},
		},
		{name: "defaults",
			input: SynthesisRequest{Text: "hi", Language: LanguageEnglish},
			want:  map[string]string{"text": "hi", "speed": "1", "speaker": "", "emotion": ""},
		},
		{name: "no text", input: SynthesisRequest{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.input.HTTPRequest(context.Background(), "http://server:8000/tts", "k1")
			if tt.wantErr {
				if err == nil {
					t.Fatal("HTTPRequest() succeeded unexpectedly")
				}
				return
			}
			if err != nil {
				t.Fatalf("HTTPRequest() failed: %v", err)
			}
			q := req.URL.Query()
			for k, v := range tt.want {
				if q.Get(k) != v {
					t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
				}
			}
		})
	}
}

func TestSynthesizer_Synthesize(t *testing.T) {
	audio := []byte{0x52, 0x49, 0x46, 0x46, 0x01, 0x02}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("text") != "labas" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write(audio)
	}))
	defer srv.Close()

	s, err := NewSynthesizer(srv.URL, "k1")
	if err != nil {
		t.Fatalf("NewSynthesizer() failed: %v", err)
	}
	got, err := s.Synthesize(context.Background(), SynthesisRequest{Text: "labas", Language: LanguageEnglish})
	if err != nil {
		t.Fatalf("Synthesize() failed: %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Errorf("got %v, want %v", got, audio)
	}
}
