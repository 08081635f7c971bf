package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/daideguchi/yomiage/internal/audioio"
)

// OpenAITTS is a narrator engine backed by the OpenAI speech API. It has
// no phonetic-query endpoint, so the dictionary reading stream is the
// only pronunciation hypothesis for risk scoring.
type OpenAITTS struct {
	client openai.Client
	model  string
	voice  string
}

// NewOpenAITTS requires an API key in the environment before any request
// is attempted.
func NewOpenAITTS(cfg Config) (*OpenAITTS, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required: set OPENAI_API_KEY")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = "alloy"
	}

	return &OpenAITTS{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		voice:  voice,
	}, nil
}

// Name returns the engine's display name.
func (o *OpenAITTS) Name() string { return "OpenAI TTS" }

// Kind returns the engine variant.
func (o *OpenAITTS) Kind() Kind { return KindOpenAI }

// IsAvailable reports whether credentials are present. The API has no
// cheap health endpoint worth burning a request on.
func (o *OpenAITTS) IsAvailable(ctx context.Context) bool {
	return os.Getenv("OPENAI_API_KEY") != ""
}

// GetReading is unsupported; callers use the dictionary reading.
func (o *OpenAITTS) GetReading(ctx context.Context, text string) (string, error) {
	return "", ErrReadingUnsupported
}

// Synthesize requests WAV output and measures its duration from the
// decoded frames.
func (o *OpenAITTS) Synthesize(ctx context.Context, text string) ([]byte, float64, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read openai speech response: %w", err)
	}

	duration, _, err := audioio.DurationBytes(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to measure synthesized audio: %w", err)
	}

	log.Debug().
		Str("model", o.model).
		Str("voice", o.voice).
		Float64("duration_sec", duration).
		Msg("OpenAI synthesis successful")
	return data, duration, nil
}
