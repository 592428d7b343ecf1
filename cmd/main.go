package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/api/ws"
	"ai-voice-agent-service/internal/app"
	"ai-voice-agent-service/internal/config"
	"ai-voice-agent-service/internal/events"
	apphttp "ai-voice-agent-service/internal/http"
	"ai-voice-agent-service/internal/observability"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/service/llm"
	llmgemini "ai-voice-agent-service/internal/service/llm/gemini"
	llmmock "ai-voice-agent-service/internal/service/llm/mock"
	"ai-voice-agent-service/internal/service/stt"
	sttgoogle "ai-voice-agent-service/internal/service/stt/google"
	sttmock "ai-voice-agent-service/internal/service/stt/mock"
	"ai-voice-agent-service/internal/service/tts"
	ttsgoogle "ai-voice-agent-service/internal/service/tts/google"
	ttsmock "ai-voice-agent-service/internal/service/tts/mock"
	"ai-voice-agent-service/internal/service/voice"
	"ai-voice-agent-service/internal/session"
	"ai-voice-agent-service/internal/telephony"
)

const watchdogInterval = 15 * time.Second

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	application.Start()
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.DefaultMetrics

	publisher := events.New(&events.Config{
		Enabled:    cfg.Kafka.Enabled,
		Brokers:    cfg.Kafka.Brokers,
		TopicTurn:  cfg.Kafka.TopicTurn,
		TopicEnded: cfg.Kafka.TopicEnded,
		Principal:  cfg.Service.Principal,
	})
	defer publisher.Close()

	registry := session.NewRegistry()
	archive := session.NewArchive(cfg.Archive.MaxTurns, cfg.Archive.TTL)
	archive.SetEvictHook(func(n int) {
		m.ArchiveEvicted.Add(float64(n))
		m.ArchiveEntries.Set(float64(archive.Len()))
	})

	voiceSvc := voice.NewService(voice.Config{
		Greeting:      cfg.Pipeline.Greeting,
		SystemPrompt:  cfg.Pipeline.SystemPrompt,
		StylePrompt:   cfg.Pipeline.StylePrompt,
		HistoryMax:    cfg.Pipeline.HistoryMax,
		FrameBytes:    cfg.Pipeline.FrameBytes,
		FrameInterval: cfg.Pipeline.FrameInterval,
		Debug:         cfg.Pipeline.Debug,
	}, voice.Deps{
		Registry:   registry,
		Archive:    archive,
		Publisher:  publisher,
		Metrics:    m,
		LLM:        newLLMProvider(ctx, cfg),
		TTS:        newTTSProvider(ctx, cfg),
		NewAdapter: newSTTFactory(cfg),
	})

	go archive.RunJanitor(ctx, cfg.Archive.JanitorInterval)
	go voiceSvc.RunWatchdog(ctx, watchdogInterval, cfg.Pipeline.IdleTimeout)

	obs := observability.NewServer(":"+cfg.Service.MetricsPort, nil)
	obs.Start()

	router := apphttp.NewRouter(apphttp.Deps{
		Voice: voiceSvc,
		Telephony: telephony.New(telephony.Config{
			AccountSID: cfg.Telephony.AccountSID,
			AuthToken:  cfg.Telephony.AuthToken,
			BaseURL:    cfg.Telephony.BaseURL,
			MediaURL:   cfg.Telephony.MediaURL,
		}),
		MediaWS: ws.NewHandler(voiceSvc, m),
	})

	server := &http.Server{
		Addr:        ":" + cfg.Service.HTTPPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Voice agent service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown error")
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown error")
	}
}

// newSTTFactory returns the per-call STT stream factory for the configured
// provider.
func newSTTFactory(cfg *config.Configuration) voice.AdapterFactory {
	switch cfg.STT.Provider {
	case "google":
		return func(ctx context.Context) (stt.Adapter, error) {
			return sttgoogle.New(ctx, sttgoogle.Config{
				LanguageCode: cfg.STT.LanguageCode,
				SampleRateHz: int32(cfg.STT.SampleRateHz),
			})
		}
	default:
		return func(ctx context.Context) (stt.Adapter, error) {
			return sttmock.New(), nil
		}
	}
}

func newTTSProvider(ctx context.Context, cfg *config.Configuration) tts.Synthesizer {
	switch cfg.TTS.Provider {
	case "google":
		s, err := ttsgoogle.New(ctx, ttsgoogle.Config{
			LanguageCode: cfg.TTS.LanguageCode,
			VoiceName:    cfg.TTS.VoiceName,
			SampleRateHz: 8000,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Google TTS client")
		}
		return s
	default:
		return ttsmock.New()
	}
}

func newLLMProvider(ctx context.Context, cfg *config.Configuration) llm.Provider {
	switch {
	case cfg.LLM.Provider == "gemini" && cfg.LLM.APIKey != "":
		p, err := llmgemini.New(ctx, llmgemini.Config{
			APIKey: cfg.LLM.APIKey,
			Model:  cfg.LLM.Model,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		return p
	default:
		log.Warn().Msg("No language model credentials, using mock provider")
		return llmmock.New()
	}
}
