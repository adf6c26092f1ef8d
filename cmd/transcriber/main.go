package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/asr-stream-client/pkg/speech"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/go-audio/wav"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	file := cfg.GetString("file")
	if file == "" {
		goapp.Log.Fatal().Msg("no file")
	}

	audio, format, err := readWav(file)
	if err != nil {
		goapp.Log.Fatal().Err(err).Str("file", file).Msg("can't read wav")
	}
	goapp.Log.Info().Str("file", file).Int("bytes", len(audio)).Str("format", string(format)).Msg("loaded")

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()
	go func() {
		waitCh := make(chan os.Signal, 2)
		signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
		<-waitCh
		goapp.Log.Info().Msg("Got exit signal")
		cancelFunc()
	}()

	if url := cfg.GetString("asr.httpURL"); url != "" {
		err = recognizeOnce(ctx, url, audio, format)
	} else {
		err = stream(ctx, audio, format)
	}
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("transcription failed")
	}
}

// recognizeOnce posts the whole recording and prints the hypotheses.
func recognizeOnce(ctx context.Context, url string, audio []byte, format speech.Format) error {
	cfg := goapp.Config
	rec, err := speech.NewRecognizer(url, cfg.GetString("asr.key"))
	if err != nil {
		return err
	}
	hyps, err := rec.Recognize(ctx, speech.RecognizeInput{
		Audio:    audio,
		UserID:   cfg.GetString("asr.user"),
		Model:    speech.Model(cfg.GetString("asr.model")),
		Format:   format,
		Language: speech.Language(cfg.GetString("asr.language")),
	})
	if err != nil {
		return err
	}
	for _, h := range hyps {
		fmt.Printf("%s\t(%.2f)\n", h.NormalizedText, h.Confidence)
	}
	return nil
}

// stream pushes the recording through a streaming session in real-time sized
// chunks and prints results as they arrive. Partials go to stderr, finals to
// stdout.
func stream(ctx context.Context, audio []byte, format speech.Format) error {
	cfg := goapp.Config
	scfg := speech.SessionConfig{
		Mode:     mode(cfg.GetString("asr.mode")),
		APIKey:   cfg.GetString("asr.key"),
		App:      cfg.GetString("asr.app"),
		UserID:   cfg.GetString("asr.user"),
		Device:   cfg.GetString("asr.device"),
		Model:    speech.Model(cfg.GetString("asr.model")),
		Format:   format,
		Language: speech.Language(cfg.GetString("asr.language")),
		Timeout:  time.Millisecond * 300,
	}
	sess, err := speech.NewSession(ctx, scfg)
	if err != nil {
		return err
	}
	defer sess.Close()
	goapp.Log.Info().Str("session", sess.ID()).Msg("session started")

	chunkSize := chunkBytes(format)
	for len(audio) > 0 && ctx.Err() == nil {
		n := min(chunkSize, len(audio))
		if err := sess.SendChunk(ctx, audio[:n], false); err != nil {
			return err
		}
		audio = audio[n:]
		if err := receiveOne(ctx, sess); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sess.SendChunk(ctx, nil, true); err != nil {
		return err
	}
	// drain the remaining results, the session disposes itself after the
	// final one
	for sess.Active() {
		if err := receiveOne(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

// receiveOne polls for a single result, a socket timeout means nothing
// arrived yet and is not an error.
func receiveOne(ctx context.Context, sess *speech.Session) error {
	res, err := sess.ReceiveResult(ctx)
	if err != nil {
		if speech.StatusOf(err) == speech.StatusTimeout {
			return nil
		}
		return err
	}
	printResult(res)
	return nil
}

func printResult(res *speech.RecognitionResult) {
	best, ok := res.Best()
	if !ok {
		return
	}
	if res.Final {
		fmt.Println(best.NormalizedText)
		return
	}
	fmt.Fprintf(os.Stderr, "... %s\r", best.NormalizedText)
}

// readWav loads the file and returns little-endian PCM bytes and the wire
// format matching the sample rate.
func readWav(file string) ([]byte, speech.Format, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("decode: %w", err)
	}
	if d.BitDepth != 16 || d.NumChans != 1 {
		return nil, "", fmt.Errorf("expected 16 bit mono, got %d bit %d channels", d.BitDepth, d.NumChans)
	}
	var format speech.Format
	switch d.SampleRate {
	case 16000:
		format = speech.FormatPcm16K
	case 8000:
		format = speech.FormatPcm8K
	default:
		return nil, "", fmt.Errorf("unsupported sample rate %d", d.SampleRate)
	}
	res := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		res[2*i] = byte(s)
		res[2*i+1] = byte(s >> 8)
	}
	return res, format, nil
}

// chunkBytes is 200ms of audio for the format.
func chunkBytes(format speech.Format) int {
	if format == speech.FormatPcm8K {
		return 8000 * 2 / 5
	}
	return 16000 * 2 / 5
}

func mode(s string) speech.Mode {
	if s == "insecure" {
		return speech.Insecure
	}
	return speech.Secure
}

var (
	version = "DEV"
)

func printBanner() {
	banner :=
		`
    SPEECH TRANSCRIBER v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/asr-stream-client"))
}
