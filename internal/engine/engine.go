// Package engine provides the closed set of speech-synthesis engines the
// pipeline can target. Every engine exposes the same two capabilities:
// an optional phonetic reading of a text, and chunk synthesis with a
// measured duration. Engine selection happens once, via the routing
// lookup, never by string comparison at call sites.
package engine

import (
	"context"
	"errors"
)

// Kind names one engine variant.
type Kind string

const (
	KindVoicevox    Kind = "voicevox"
	KindAivisSpeech Kind = "aivisspeech"
	KindOpenAI      Kind = "openai"
	KindPolly       Kind = "polly"
	KindGCP         Kind = "gcp"
)

// ErrReadingUnsupported is returned by narrator engines that have no
// phonetic-query endpoint. Callers fall back to the dictionary reading.
var ErrReadingUnsupported = errors.New("engine does not expose a phonetic reading")

// Engine is the capability interface every synthesis engine implements.
type Engine interface {
	// Name returns the engine's display name.
	Name() string

	// Kind returns the engine variant.
	Kind() Kind

	// IsAvailable probes whether the engine can serve requests.
	IsAvailable(ctx context.Context) bool

	// GetReading returns the engine's own kana reading of text, or
	// ErrReadingUnsupported for engines without a phonetic query.
	GetReading(ctx context.Context, text string) (string, error)

	// Synthesize converts text to a mono WAV and returns the encoded
	// bytes together with the measured duration in seconds. The
	// duration is decoded from the produced audio, never estimated.
	Synthesize(ctx context.Context, text string) ([]byte, float64, error)
}

// New constructs the engine selected by cfg. Unknown kinds are a
// configuration error, not a silent default.
func New(ctx context.Context, cfg Config) (Engine, error) {
	switch cfg.Kind {
	case KindVoicevox, KindAivisSpeech:
		return NewVoicevox(cfg)
	case KindOpenAI:
		return NewOpenAITTS(cfg)
	case KindPolly:
		return NewPolly(ctx, cfg)
	case KindGCP:
		return NewGCP(ctx, cfg)
	default:
		return nil, errors.New("unknown engine kind: " + string(cfg.Kind))
	}
}
