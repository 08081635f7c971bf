package engine

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/rs/zerolog/log"

	"github.com/daideguchi/yomiage/internal/audioio"
)

// GCP is a narrator engine backed by Google Cloud Text-to-Speech.
// LINEAR16 output carries a WAV header, so durations are measured the
// same way as for local engines. Authentication uses Application Default
// Credentials.
type GCP struct {
	client     *texttospeech.Client
	voiceName  string
	language   string
	sampleRate int
}

// NewGCP creates the TTS client; ADC failures surface here, before any
// synthesis is attempted.
func NewGCP(ctx context.Context, cfg Config) (*GCP, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP TTS client: %w", err)
	}

	voiceName := cfg.Voice
	if voiceName == "" {
		voiceName = "ja-JP-Neural2-B"
	}
	language := cfg.LanguageCode
	if language == "" {
		language = "ja-JP"
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 24000
	}

	return &GCP{
		client:     client,
		voiceName:  voiceName,
		language:   language,
		sampleRate: sampleRate,
	}, nil
}

// Name returns the engine's display name.
func (g *GCP) Name() string { return "Google Cloud TTS" }

// Kind returns the engine variant.
func (g *GCP) Kind() Kind { return KindGCP }

// IsAvailable probes the service with a voice listing.
func (g *GCP) IsAvailable(ctx context.Context) bool {
	_, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{
		LanguageCode: g.language,
	})
	return err == nil
}

// GetReading is unsupported; callers use the dictionary reading.
func (g *GCP) GetReading(ctx context.Context, text string) (string, error) {
	return "", ErrReadingUnsupported
}

// Synthesize requests LINEAR16 audio and measures its duration from the
// decoded frames.
func (g *GCP) Synthesize(ctx context.Context, text string) ([]byte, float64, error) {
	if text == "" {
		return nil, 0, fmt.Errorf("text cannot be empty")
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.language,
			Name:         g.voiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: int32(g.sampleRate),
		},
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	duration, _, err := audioio.DurationBytes(resp.AudioContent)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to measure synthesized audio: %w", err)
	}

	log.Debug().
		Str("voice", g.voiceName).
		Int("sample_rate", g.sampleRate).
		Float64("duration_sec", duration).
		Msg("GCP synthesis successful")
	return resp.AudioContent, duration, nil
}

// Close releases the underlying gRPC connection.
func (g *GCP) Close() error {
	return g.client.Close()
}
