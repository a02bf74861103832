package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/JxcChen/bili-pro/internal/api"
	"github.com/JxcChen/bili-pro/internal/asr"
	"github.com/JxcChen/bili-pro/internal/audio"
	"github.com/JxcChen/bili-pro/internal/config"
	"github.com/JxcChen/bili-pro/internal/extract"
	"github.com/JxcChen/bili-pro/internal/jobs"
	"github.com/JxcChen/bili-pro/internal/platform"
	"github.com/JxcChen/bili-pro/internal/server"
	"github.com/JxcChen/bili-pro/internal/summarize"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	// 1. Filesystem
	if err := server.PrepareFilesystem(cfg); err != nil {
		log.Fatalf(">>> ❌ Error preparing filesystem: %v", err)
	}

	// 2. Collaborators: platform client, recognition chain, acquisition chain
	client := platform.NewClient(cfg.APIBase, cfg.Cookie, cfg.MaxRetry)
	recognizer := buildRecognizer(cfg)
	acquirer := audio.NewChain(
		audio.NewYtDlp(cfg.YtDlpBin, cfg.TempDir),
		audio.NewConverter(cfg.ConverterURL, cfg.TempDir, cfg.ConverterWait),
	)

	// 3. Services: registry, orchestrator, summarizer, handlers
	registry := jobs.NewRegistry()
	jobs.StartJanitor(registry, cfg.TempDir, cfg.CleanupAfter)

	orchestrator := extract.NewOrchestrator(
		client, recognizer, acquirer, registry,
		cfg.MaxVideoDuration, cfg.JobTimeout,
	)
	summarizer := summarize.NewService(cfg.DeepSeekAPIKey, cfg.DeepSeekAPIURL, cfg.DeepSeekModel)
	handler := api.NewHandler(orchestrator, registry, summarizer)

	// 4. Router with middleware
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	fmt.Println(">>> 🎬 Bilibili Transcript Server Started")
	fmt.Printf(">>> ⚡ Port: %s\n", cfg.Port)
	fmt.Printf(">>> 🎙  Recognition available: %v\n", recognizer.Available())

	log.Fatal(http.ListenAndServe(cfg.Port, router))
}

// buildRecognizer assembles the provider chain in configured order.
// Availability of each tier is resolved here, once, at startup.
func buildRecognizer(cfg *config.Config) *asr.Chain {
	byName := func(name string) asr.Provider {
		switch name {
		case "whisper":
			return asr.NewWhisper(cfg.WhisperBin, cfg.WhisperModel)
		case "bcut":
			return asr.NewBcut(cfg.BcutAPIBase, cfg.BcutEnabled)
		default:
			return nil
		}
	}

	var providers []asr.Provider
	for _, name := range []string{cfg.ASRPrimary, cfg.ASRSecondary} {
		if name == "" {
			continue
		}
		if p := byName(name); p != nil {
			providers = append(providers, p)
		} else {
			log.Printf(">>> ⚠️ Unknown ASR provider %q, skipping", name)
		}
	}
	return asr.NewChain(providers...)
}
