package speech

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Mode selects the transport security and with it the service port.
type Mode int

const (
	// Insecure connects over plain TCP.
	Insecure Mode = iota
	// Secure connects over TLS.
	Secure
)

// Model selects the recognition model tuned for a type of speech.
type Model string

const (
	ModelQueries Model = "queries"
	ModelNotes   Model = "notes"
	ModelMaps    Model = "maps"
	ModelNumbers Model = "numbers"
)

// Format is the wire code of the audio encoding sent in chunks.
type Format string

const (
	FormatPcm16K Format = "audio/x-pcm;bit=16;rate=16000"
	FormatPcm8K  Format = "audio/x-pcm;bit=16;rate=8000"
	FormatSpeex  Format = "audio/x-speex"
)

// Language is the recognition language code.
type Language string

const (
	LanguageRussian   Language = "ru-RU"
	LanguageEnglish   Language = "en-US"
	LanguageUkrainian Language = "uk-UA"
	LanguageTurkish   Language = "tr-TR"
)

// Biometry is a server-side analysis flag requested for the session.
type Biometry string

const (
	BiometryGender   Biometry = "gender"
	BiometryAgeGroup Biometry = "group"
	BiometryChildren Biometry = "children"
)

// Position is the caller's geographic coordinates, sent to the service
// to improve recognition of local names.
type Position struct {
	Lat float64
	Lon float64
}

func (p Position) String() string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lon, 'f', 6, 64)
}

// MaxChunkSize is the largest audio payload accepted by SendChunk.
const MaxChunkSize = 1 << 20

// Protocol keeps the fixed service endpoint and handshake constants.
// The values never change after creation. Tests replace the whole value
// to point a session at a stub server.
type Protocol struct {
	Host             string
	SecurePort       int
	PlainPort        int
	HandshakeToken   string
	HandshakeTrigger string
	ProtocolVersion  string
	ServiceVersion   string
}

// DefaultProtocol returns the production service endpoint constants.
func DefaultProtocol() Protocol {
	return Protocol{
		Host:             "asr.speechhub.io",
		SecurePort:       443,
		PlainPort:        80,
		HandshakeToken:   "GET /asr_stream HTTP/1.1\r\nHost: asr.speechhub.io\r\nUpgrade: dictation\r\n\r\n",
		HandshakeTrigger: "101 Switching Protocols",
		ProtocolVersion:  "0.2",
		ServiceVersion:   "1.0",
	}
}

func (p Protocol) address(m Mode) string {
	port := p.PlainPort
	if m == Secure {
		port = p.SecurePort
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// SessionConfig holds everything needed to negotiate one streaming session.
type SessionConfig struct {
	// Protocol overrides the service endpoint constants. Nil means production.
	Protocol *Protocol

	Mode   Mode
	APIKey string
	App    string
	// UserID is the caller-supplied uuid identifying the end user.
	UserID string
	Device string

	Model    Model
	Format   Format
	Language Language
	Biometry []Biometry
	Position *Position

	// DisablePartials turns off intermediate per-utterance results.
	DisablePartials bool

	// Timeout is the socket send/receive timeout applied to every
	// network operation. Zero means no timeout.
	Timeout time.Duration
}

func (c *SessionConfig) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("no api key")
	}
	if c.App == "" {
		return fmt.Errorf("no app name")
	}
	if c.UserID == "" {
		return fmt.Errorf("no user id")
	}
	return nil
}

func (c *SessionConfig) protocol() Protocol {
	if c.Protocol != nil {
		return *c.Protocol
	}
	return DefaultProtocol()
}

func (c *SessionConfig) connectionRequest(p Protocol) *connectionRequest {
	res := &connectionRequest{
		APIKey:          c.APIKey,
		App:             c.App,
		ProtocolVersion: p.ProtocolVersion,
		ServiceVersion:  p.ServiceVersion,
		UUID:            c.UserID,
		Device:          c.Device,
		Topic:           string(c.Model),
		Lang:            string(c.Language),
		Format:          string(c.Format),
		PartialResults:  !c.DisablePartials,
	}
	if c.Position != nil {
		res.Coords = c.Position.String()
	}
	if len(c.Biometry) > 0 {
		flags := make([]string, 0, len(c.Biometry))
		for _, b := range c.Biometry {
			flags = append(flags, string(b))
		}
		res.Biometry = strings.Join(flags, ",")
	}
	return res
}
