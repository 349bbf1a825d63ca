package podcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ardanlabs/ai-agents/foundation/client"
)

// Defaults for the ElevenLabs text to speech service.
const (
	DefaultElevenLabsURL = "https://api.elevenlabs.io"
	DefaultVoiceID       = "JBFqnCBsd6RMkjVDRZzb"
	DefaultModelID       = "eleven_multilingual_v2"
)

// ElevenLabsConfig represents the settings for the speech service.
type ElevenLabsConfig struct {
	Client  *client.Client
	URL     string
	APIKey  string
	VoiceID string
	ModelID string
}

// ElevenLabs converts text to MP3 audio.
type ElevenLabs struct {
	cln      *client.Client
	endpoint string
	modelID  string
}

// NewElevenLabs constructs the speech client. The client in the
// configuration must not carry headers meant for other services.
func NewElevenLabs(cfg ElevenLabsConfig) (*ElevenLabs, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("elevenlabs api key is required")
	}

	base := cfg.URL
	if base == "" {
		base = DefaultElevenLabsURL
	}

	voiceID := cfg.VoiceID
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	modelID := cfg.ModelID
	if modelID == "" {
		modelID = DefaultModelID
	}

	endpoint, err := url.JoinPath(base, "v1/text-to-speech", voiceID)
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}

	cln := cfg.Client
	if cln == nil {
		cln = client.New(nil)
	}

	el := ElevenLabs{
		cln:      cln.With(client.WithHeader("xi-api-key", cfg.APIKey), client.WithHeader("Accept", "audio/mpeg")),
		endpoint: endpoint,
		modelID:  modelID,
	}

	return &el, nil
}

// Speak returns the audio for the text.
func (el *ElevenLabs) Speak(ctx context.Context, text string) ([]byte, error) {
	body := client.D{
		"text":     text,
		"model_id": el.modelID,
	}

	var audio []byte
	if err := el.cln.Do(ctx, http.MethodPost, el.endpoint, body, &audio); err != nil {
		return nil, fmt.Errorf("text to speech: %w", err)
	}

	if len(audio) == 0 {
		return nil, errors.New("text to speech: empty audio")
	}

	return audio, nil
}
