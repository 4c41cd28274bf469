package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"omnis/kiosk/internal/answer"
	"omnis/kiosk/internal/api"
	"omnis/kiosk/internal/audio"
	"omnis/kiosk/internal/config"
	"omnis/kiosk/internal/conversation"
	"omnis/kiosk/internal/coordinator"
	"omnis/kiosk/internal/enroll"
	"omnis/kiosk/internal/events"
	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/facestore"
	"omnis/kiosk/internal/floor"
	"omnis/kiosk/internal/health"
	"omnis/kiosk/internal/presence"
	"omnis/kiosk/internal/speech"
	"omnis/kiosk/internal/telemetry"
	"omnis/kiosk/internal/tts"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := run(cfg); err != nil {
		log.Printf("kiosk error: %v", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTrace, err := telemetry.Init(ctx, cfg.Trace.Exporter, nil)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdownTrace(sctx)
	}()

	store, err := facestore.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open face store: %w", err)
	}
	defer store.Close()
	records, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load faces: %w", err)
	}
	gallery := face.NewGallery(records)
	log.Printf("loaded %d enrolled faces", gallery.Len())

	sidecar, err := face.Dial(ctx, cfg.Face.SidecarAddr)
	if err != nil {
		return fmt.Errorf("vision sidecar: %w", err)
	}
	defer sidecar.Close()

	faq, err := answer.OpenFAQ(cfg.Answer.FAQPath)
	if err != nil {
		return fmt.Errorf("open faq: %w", err)
	}
	defer faq.Close()
	chat := answer.NewChat(answer.RemoteConfig{
		APIKey:      cfg.Answer.APIKey,
		BaseURL:     cfg.Answer.BaseURL,
		Model:       cfg.Answer.Model,
		MaxTokens:   cfg.Answer.MaxTokens,
		Temperature: cfg.Answer.Temperature,
		Debug:       cfg.Debug,
	})
	if !chat.Configured() {
		log.Printf("answer backend has no API key; unmatched questions get a fixed reply")
	}
	router := conversation.NewRouter(faq, chat)

	// Perception keeps running without audio; speech is then logged only and
	// voice starts fail until the kiosk is restarted with a working backend.
	actx, err := audio.NewContext()
	if err != nil {
		log.Printf("audio backend unavailable, voice disabled: %v", err)
		actx = nil
	} else {
		defer actx.Close()
	}

	var synth audio.Synthesizer = tts.Silent{}
	if s, err := tts.NewOpenAI(cfg.TTS.APIKey, "", cfg.TTS.Model, cfg.TTS.Voice); err == nil {
		synth = s
	} else {
		log.Printf("tts disabled: %v", err)
	}
	var out audio.Output
	if actx != nil {
		player, err := actx.OpenPlayer()
		if err != nil {
			log.Printf("no playback device, speech is logged only: %v", err)
		} else {
			defer player.Close()
			out = player
		}
	}
	gate := floor.New(300 * time.Millisecond)
	speaker := audio.NewSpeaker(synth, out, gate)
	go speaker.Run(ctx)

	hub := events.NewHub(events.DefaultMaxEvents)
	slot := enroll.NewSlot()
	enroller := enroll.NewCoordinator(slot, store, gallery)
	active := new(atomic.Bool)

	var transcriber speech.Transcriber
	whisper, sttErr := speech.NewWhisper(cfg.Speech.APIKey, cfg.Speech.BaseURL, cfg.Speech.Model, "en")
	if sttErr != nil {
		log.Printf("speech recognition disabled: %v", sttErr)
	} else {
		transcriber = whisper
	}

	builder := &voiceBuilder{
		cfg:         cfg,
		audio:       actx,
		transcriber: transcriber,
		sttErr:      sttErr,
		deps: conversation.Deps{
			Speaker: speaker,
			Router:  router,
			Slot:    slot,
			Names:   enroller,
			Events:  hub,
			Active:  active,
		},
	}
	voice := coordinator.NewVoiceRunner(builder.build, func(id string, err error) {
		active.Store(false)
		hub.Publish("voice_exit", map[string]any{"session_id": id, "error": errString(err)})
	})

	matcher := face.NewMatcher(cfg.Face.Tolerance, cfg.Face.MaxFaces)
	matcher.SetDebug(cfg.Debug)
	coord := coordinator.New(coordinator.Deps{
		Camera:  sidecar,
		Matcher: matcher,
		Gallery: gallery,
		Tracker: presence.New(cfg.Presence.Cooldown),
		Slot:    slot,
		Speaker: speaker,
		Voice:   voice,
		Events:  hub,
		Active:  active,
	}, coordinator.Options{
		CameraIndex:     cfg.Face.CameraIndex,
		FrameInterval:   time.Duration(cfg.Face.FrameIntervalMs) * time.Millisecond,
		Greeting:        cfg.Presence.Greeting,
		UnknownGreeting: cfg.Presence.UnknownGreeting,
		EnrollPrompt:    cfg.Enroll.Prompt,
		Debug:           cfg.Debug,
	})

	h := api.NewHandlers(cfg, api.Deps{
		Status: coord,
		Voice:  voice,
		Faces:  gallery,
		Hub:    hub,
		Health: func(hctx context.Context) health.HealthStatus {
			deps := health.Deps{Vision: sidecar.Conn(), Faces: store}
			if actx != nil {
				deps.Devices = actx.CaptureDevices
			}
			return health.CheckAll(hctx, cfg, deps)
		},
	})
	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(api.NewRouter(h)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("monitor server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Println("server error:", err)
			stop()
		}
	}()

	err = coord.Run(ctx)

	log.Printf("shutdown signal received; stopping...")
	if voice.IsRunning() {
		_ = voice.Stop()
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
