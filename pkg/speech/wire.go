package speech

// Wire message value objects. The framing in channel.go is the protocol
// contract, the payloads are plain serializable structures.

const codeOK = 200

type connectionRequest struct {
	APIKey          string `json:"apiKey"`
	App             string `json:"applicationName"`
	ProtocolVersion string `json:"protocolVersion"`
	ServiceVersion  string `json:"serviceVersion"`
	UUID            string `json:"uuid"`
	Device          string `json:"device"`
	Coords          string `json:"coords,omitempty"`
	Topic           string `json:"topic"`
	Lang            string `json:"lang"`
	Format          string `json:"format"`
	Biometry        string `json:"biometry,omitempty"`
	PartialResults  bool   `json:"partialResults"`
}

type connectionResponse struct {
	Code      int    `json:"responseCode"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message,omitempty"`
}

type chunkMessage struct {
	Audio     []byte `json:"audioData,omitempty"`
	LastChunk bool   `json:"lastChunk"`
}

// Hypothesis is one recognition variant of an utterance.
type Hypothesis struct {
	Confidence     float32 `json:"confidence"`
	NormalizedText string  `json:"normalized-text"`
}

// BiometryResult carries one server-side speaker classification.
type BiometryResult struct {
	Classname  string  `json:"classname"`
	Confidence float32 `json:"confidence"`
	Tag        string  `json:"tag,omitempty"`
}

// RecognitionResult is one inbound decoded response. Successive partial
// results of the same utterance arrive already merged by the server.
type RecognitionResult struct {
	Hypotheses []Hypothesis     `json:"recognition"`
	Final      bool             `json:"endOfUtt"`
	Biometry   []BiometryResult `json:"bioResult,omitempty"`
}

// Best returns the top hypothesis, if any.
func (r *RecognitionResult) Best() (Hypothesis, bool) {
	if len(r.Hypotheses) == 0 {
		return Hypothesis{}, false
	}
	return r.Hypotheses[0], true
}
