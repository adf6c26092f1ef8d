package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// SynthesisRequest describes one text-to-speech generation.
type SynthesisRequest struct {
	Text     string
	Voice    string
	Language Language
	Format   Format
	Emotion  string
	// Speed scales the speaking rate, 1.0 is normal. Zero is treated as 1.0.
	Speed float64
}

// HTTPRequest renders the synthesis parameters into a ready request against
// getURL. The API key travels in the query like the recognition calls.
func (sr SynthesisRequest) HTTPRequest(ctx context.Context, getURL, apiKey string) (*http.Request, error) {
	if sr.Text == "" {
		return nil, fmt.Errorf("no text")
	}
	req, err := http.NewRequest(http.MethodGet, getURL, nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("key", apiKey)
	q.Set("text", sr.Text)
	q.Set("lang", string(sr.Language))
	q.Set("format", string(sr.Format))
	if sr.Voice != "" {
		q.Set("speaker", sr.Voice)
	}
	if sr.Emotion != "" {
		q.Set("emotion", sr.Emotion)
	}
	speed := sr.Speed
	if speed == 0 {
		speed = 1.0
	}
	q.Set("speed", strconv.FormatFloat(speed, 'f', -1, 64))
	req.URL.RawQuery = q.Encode()
	return req.WithContext(ctx), nil
}

// Synthesizer generates audio from text over HTTP.
type Synthesizer struct {
	httpclient *http.Client
	url        string
	apiKey     string
	timeout    time.Duration
}

// NewSynthesizer creates a synthesis client
func NewSynthesizer(getURL, apiKey string) (*Synthesizer, error) {
	res := Synthesizer{}
	if getURL == "" {
		return nil, fmt.Errorf("no getURL")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no api key")
	}
	res.url = getURL
	res.apiKey = apiKey
	res.timeout = time.Second * 30
	res.httpclient = asrHTTPClient()
	goapp.Log.Info().Str("url", getURL).Msg("Synthesizer")
	return &res, nil
}

// Synthesize performs the generation and returns the audio bytes.
func (sp *Synthesizer) Synthesize(ctx context.Context, input SynthesisRequest) ([]byte, error) {
	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()

	req, err := input.HTTPRequest(ctx, sp.url, sp.apiKey)
	if err != nil {
		return nil, err
	}
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
		return nil, err
	}
	return io.ReadAll(resp.Body)
}
