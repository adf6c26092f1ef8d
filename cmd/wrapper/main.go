package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/asr-stream-client/internal/db"
	"github.com/airenas/asr-stream-client/internal/handlers"
	"github.com/airenas/asr-stream-client/internal/service"
	"github.com/airenas/asr-stream-client/pkg/speech"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	data := &service.Data{}
	data.Ctx = ctx
	data.Port = cfg.GetInt("port")

	store, err := newStore()
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init store")
	}
	defer store.Close()

	scfg := speech.SessionConfig{
		Mode:     speechMode(cfg.GetString("asr.mode")),
		APIKey:   cfg.GetString("asr.key"),
		App:      cfg.GetString("asr.app"),
		Device:   cfg.GetString("asr.device"),
		Model:    speech.Model(cfg.GetString("asr.model")),
		Format:   speech.FormatPcm16K,
		Language: speech.Language(cfg.GetString("asr.language")),
		Timeout:  cfg.GetDuration("asr.timeout"),
	}
	trHandler := service.NewWSSpeechHandler(scfg, store)

	hList, err := handlers.NewListHandler()
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init list handler")
	}
	hList.Add(handlers.NewCleaner())
	trHandler.Middleware = hList
	data.WSHandlerSpeech = trHandler

	doneCh, err := service.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}

	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

type store interface {
	service.Store
	Close() error
}

func newStore() (store, error) {
	cfg := goapp.Config
	if url := cfg.GetString("redis.url"); url != "" {
		return db.NewRedisStore(url, cfg.GetString("encryption.key"))
	}
	goapp.Log.Warn().Msg("no redis.url, using in-memory store")
	return db.NewMemoryStore(), nil
}

func speechMode(s string) speech.Mode {
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
    SPEECH STREAM WRAPPER v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/asr-stream-client"))
}
