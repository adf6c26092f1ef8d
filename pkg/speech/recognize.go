package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// Recognizer sends one complete recording for transcription over HTTP.
// For incremental results use NewSession instead.
type Recognizer struct {
	httpclient *http.Client
	url        string
	apiKey     string
	timeout    time.Duration
}

// NewRecognizer creates a one-shot recognition client
func NewRecognizer(getURL, apiKey string) (*Recognizer, error) {
	res := Recognizer{}
	if getURL == "" {
		return nil, fmt.Errorf("no getURL")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no api key")
	}
	res.url = getURL
	res.apiKey = apiKey
	res.timeout = time.Minute
	res.httpclient = asrHTTPClient()
	goapp.Log.Info().Str("url", getURL).Msg("Recognizer")
	return &res, nil
}

// RecognizeInput carries one recording and its session parameters.
type RecognizeInput struct {
	Audio    []byte
	UserID   string
	Model    Model
	Format   Format
	Language Language
}

type recognizeResponse struct {
	Utterances []struct {
		Text       string  `json:"text"`
		Confidence float32 `json:"confidence"`
	} `json:"utterances"`
}

// Recognize posts the audio and returns the utterance hypotheses.
func (sp *Recognizer) Recognize(ctx context.Context, input RecognizeInput) ([]Hypothesis, error) {
	if len(input.Audio) == 0 {
		return nil, fmt.Errorf("no audio data")
	}
	ctx, cancelF := context.WithTimeout(ctx, sp.timeout)
	defer cancelF()

	req, err := http.NewRequest(http.MethodPost, sp.url, bytes.NewReader(input.Audio))
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("key", sp.apiKey)
	q.Set("uuid", input.UserID)
	q.Set("topic", string(input.Model))
	q.Set("lang", string(input.Language))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", string(input.Format))
	req = req.WithContext(ctx)

	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
		return nil, err
	}
	res := &recognizeResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	hyps := make([]Hypothesis, 0, len(res.Utterances))
	for _, u := range res.Utterances {
		hyps = append(hyps, Hypothesis{Confidence: u.Confidence, NormalizedText: u.Text})
	}
	return hyps, nil
}

func asrHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 5
	res.MaxIdleConns = 2
	res.MaxIdleConnsPerHost = 2
	res.IdleConnTimeout = 90 * time.Second
	return res
}
