package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/airenas/asr-stream-client/internal/api"
	"github.com/airenas/asr-stream-client/internal/domain"
	"github.com/airenas/asr-stream-client/internal/handlers"
	"github.com/airenas/asr-stream-client/internal/utils"
	"github.com/airenas/asr-stream-client/pkg/speech"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// Store persists finished transcriptions.
type Store interface {
	SaveAudio(ctx context.Context, id string, chunks [][]byte) error
	SaveTranscript(ctx context.Context, tr *domain.Transcript) error
}

// WSSpeechHandler bridges one client websocket to one streaming recognition
// session. The session allows a single in-flight operation, so the bridge
// serializes chunk sends and result receives behind one lock and relies on
// the short socket timeout to alternate between the two directions.
type WSSpeechHandler struct {
	cfg        speech.SessionConfig
	store      Store
	Middleware handlers.Handler
	drainWait  time.Duration
}

// NewWSSpeechHandler creates handler
func NewWSSpeechHandler(cfg speech.SessionConfig, store Store) *WSSpeechHandler {
	res := &WSSpeechHandler{}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Millisecond * 300
	}
	res.cfg = cfg
	res.store = store
	res.drainWait = time.Second * 5
	goapp.Log.Info().Str("model", string(cfg.Model)).Str("lang", string(cfg.Language)).Msg("speech backend")
	return res
}

// HandleConnection runs the bridge until the client stops or drops.
// Binary frames are audio chunks, a text frame with the stop event ends the
// stream; recognition results flow back as JSON.
func (kp *WSSpeechHandler) HandleConnection(ctx context.Context, conn *websocket.Conn, userID string) error {
	defer conn.Close()

	scfg := kp.cfg
	scfg.UserID = userID
	sess, err := speech.NewSession(ctx, scfg)
	if err != nil {
		_ = conn.WriteJSON(&api.FullResult{Event: api.EventError, Error: err.Error()})
		return fmt.Errorf("can't create session: %w", err)
	}
	defer sess.Close()

	trID := ulid.Make().String()
	goapp.Log.Info().Str("transcription", trID).Str("session", sess.ID()).Str("user", userID).Msg("bridge started")

	ctx, acc := utils.CustomContext(ctx)

	var wsLock sync.Mutex
	writeFunc := func(msg *api.FullResult) error {
		wsLock.Lock()
		defer wsLock.Unlock()
		return conn.WriteJSON(msg)
	}
	if err := writeFunc(&api.FullResult{Event: api.EventStarted, TranscriptionID: trID, SessionID: sess.ID()}); err != nil {
		return err
	}

	closeCtx, cf := context.WithCancel(ctx)
	defer cf()

	var ioLock sync.Mutex
	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		defer cf()
		kp.receiveLoop(closeCtx, sess, trID, acc, writeFunc, &ioLock)
	}()

	var audio [][]byte
	readCh := readWebSocket(closeCtx, conn)
loop:
	for {
		select {
		case <-closeCtx.Done():
			break loop
		case d, ok := <-readCh:
			if !ok {
				break loop
			}
			if d.t == websocket.BinaryMessage {
				audio = append(audio, d.msg)
				if err := kp.sendAudio(closeCtx, sess, &ioLock, d.msg); err != nil {
					goapp.Log.Error().Err(err).Msg("send chunk")
					break loop
				}
				continue
			}
			if strings.TrimSpace(string(d.msg)) == api.EventStop {
				if err := kp.sendChunk(closeCtx, sess, &ioLock, nil, true); err != nil {
					goapp.Log.Error().Err(err).Msg("send last chunk")
				}
				break loop
			}
			goapp.Log.Warn().Str("msg", string(d.msg)).Msg("unknown event")
		}
	}

	// let the receiver drain the final results
	select {
	case <-recvDone:
	case <-time.After(kp.drainWait):
		goapp.Log.Warn().Msg("receiver drain timeout")
		_ = sess.Close()
		<-recvDone
	}

	kp.saveResult(trID, userID, sess.ID(), acc, audio)
	_ = writeFunc(&api.FullResult{Event: api.EventStopped, TranscriptionID: trID})
	goapp.Log.Info().Str("transcription", trID).Msg("bridge finished")
	return nil
}

// sendAudio forwards one websocket frame, splitting it to honor the chunk
// size limit.
func (kp *WSSpeechHandler) sendAudio(ctx context.Context, sess *speech.Session, lock *sync.Mutex, data []byte) error {
	for _, part := range splitChunks(data, speech.MaxChunkSize) {
		if err := kp.sendChunk(ctx, sess, lock, part, false); err != nil {
			return err
		}
	}
	return nil
}

func (kp *WSSpeechHandler) sendChunk(ctx context.Context, sess *speech.Session, lock *sync.Mutex, data []byte, last bool) error {
	for {
		lock.Lock()
		err := sess.SendChunk(ctx, data, last)
		lock.Unlock()
		if speech.StatusOf(err) == speech.StatusTimeout {
			goapp.Log.Warn().Msg("send timeout, retrying")
			continue
		}
		return err
	}
}

func (kp *WSSpeechHandler) receiveLoop(ctx context.Context, sess *speech.Session, trID string,
	acc *utils.CustomData, write func(msg *api.FullResult) error, lock *sync.Mutex) {
	for {
		lock.Lock()
		res, err := sess.ReceiveResult(ctx)
		lock.Unlock()
		if err != nil {
			switch speech.StatusOf(err) {
			case speech.StatusTimeout:
				continue
			case speech.StatusCancelled, speech.StatusDisposed:
				return
			default:
				goapp.Log.Error().Err(err).Msg("receive result")
				return
			}
		}
		full := toAPIResult(res, trID, sess.ID())
		if kp.Middleware != nil {
			if processed, err := kp.Middleware.Process(ctx, full); err != nil {
				goapp.Log.Error().Err(err).Msg("middleware")
			} else {
				full = processed
			}
		}
		accumulate(acc, full)
		if err := write(full); err != nil {
			goapp.Log.Error().Err(err).Msg("write result")
			return
		}
		if !sess.Active() {
			// final result of the last chunk, nothing more will come
			return
		}
	}
}

func (kp *WSSpeechHandler) saveResult(trID, userID, sessionID string, acc *utils.CustomData, audio [][]byte) {
	if kp.store == nil {
		return
	}
	ctx, cancelF := context.WithTimeout(context.Background(), time.Second*10)
	defer cancelF()
	if len(audio) > 0 {
		if err := kp.store.SaveAudio(ctx, fmt.Sprintf("audio-%s-%s", userID, trID), audio); err != nil {
			goapp.Log.Error().Err(err).Msg("save audio")
		}
	}
	if text := acc.Text(); text != "" {
		tr := &domain.Transcript{ID: trID, User: userID, SessionID: sessionID, Text: text, CreatedAt: time.Now()}
		if err := kp.store.SaveTranscript(ctx, tr); err != nil {
			goapp.Log.Error().Err(err).Msg("save transcript")
		}
	}
}

func toAPIResult(res *speech.RecognitionResult, trID, sessionID string) *api.FullResult {
	full := &api.FullResult{TranscriptionID: trID, SessionID: sessionID}
	full.Result.Final = res.Final
	for _, h := range res.Hypotheses {
		full.Result.Hypotheses = append(full.Result.Hypotheses,
			api.Hypothesis{Transcript: h.NormalizedText, Confidence: float64(h.Confidence)})
	}
	return full
}

func accumulate(acc *utils.CustomData, full *api.FullResult) {
	if len(full.Result.Hypotheses) == 0 {
		return
	}
	text := full.Result.Hypotheses[0].Transcript
	if full.Result.Final {
		acc.Finals = append(acc.Finals, text)
		acc.PartialResult = ""
	} else {
		acc.PartialResult = text
	}
}

func splitChunks(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	var res [][]byte
	for len(data) > size {
		res = append(res, data[:size])
		data = data[size:]
	}
	return append(res, data)
}
