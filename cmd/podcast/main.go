// This program turns a blog post into a short spoken podcast. The page is
// scraped, a language model writes a conversational script and ElevenLabs
// reads it out as MP3.
//
// # Running the program:
//
//	$ go run ./cmd/podcast -url https://go.dev/blog/intro-generics -out podcast.mp3
//
// ELEVENLABS_API_KEY must be set. LLM_* settings select the model the same
// way the analyst does. When DOCLING_URL is set the page is converted to
// markdown by a Docling service instead of being scraped directly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/client"
	"github.com/ardanlabs/ai-agents/foundation/config"
	"github.com/ardanlabs/ai-agents/foundation/docling"
	"github.com/ardanlabs/ai-agents/foundation/llm"
	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/ai-agents/foundation/podcast"
)

func main() {
	log := logger.New(os.Stdout, "PODCAST")

	if err := run(log); err != nil {
		log(context.Background(), "podcast", "ERROR", err)
		os.Exit(1)
	}
}

func run(log logger.Logger) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	url := flag.String("url", "", "blog post to convert")
	out := flag.String("out", "podcast.mp3", "file to write the audio to")
	script := flag.String("script", "", "optional file to write the script to")
	flag.Parse()

	if *url == "" {
		flag.Usage()
		return errors.New("a url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// -------------------------------------------------------------------------

	completer, release, err := llm.New(ctx, llm.Config{
		Log:           log,
		Backend:       config.String("LLM_BACKEND", llm.BackendHTTP),
		URL:           config.String("LLM_SERVER", llm.DefaultURL),
		Model:         config.String("LLM_MODEL", llm.DefaultModel),
		APIKey:        config.String("LLM_API_KEY", ""),
		KronkModelURL: config.String("KRONK_MODEL_URL", ""),
		Temperature:   0.3,
	})
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	defer release(context.Background())

	cln := client.New(log)

	speaker, err := podcast.NewElevenLabs(podcast.ElevenLabsConfig{
		Client:  cln,
		APIKey:  config.String("ELEVENLABS_API_KEY", ""),
		VoiceID: config.String("ELEVENLABS_VOICE_ID", podcast.DefaultVoiceID),
		ModelID: config.String("ELEVENLABS_MODEL_ID", podcast.DefaultModelID),
	})
	if err != nil {
		return fmt.Errorf("elevenlabs: %w", err)
	}

	var scraper podcast.Scraper = podcast.NewWebScraper(cln, true)

	if host := config.String("DOCLING_URL", ""); host != "" {
		doc, err := docling.New(cln, host)
		if err != nil {
			return fmt.Errorf("docling: %w", err)
		}
		scraper = doc
	}

	pipeline, err := podcast.New(podcast.Config{
		Log:       log,
		Scraper:   scraper,
		Completer: completer,
		Speaker:   speaker,
		Policy:    llm.Policy(2*time.Minute, 2),
	})
	if err != nil {
		return fmt.Errorf("podcast: %w", err)
	}

	// -------------------------------------------------------------------------

	state, err := pipeline.Run(ctx, *url)
	if err != nil {
		return err
	}

	if *script != "" {
		if err := os.WriteFile(*script, []byte(state.Script), 0644); err != nil {
			return fmt.Errorf("write script: %w", err)
		}
	}

	if err := os.WriteFile(*out, state.Audio, 0644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}

	log(ctx, "podcast", "status", "podcast generated", "file", *out, "bytes", len(state.Audio))

	return nil
}
