package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/daideguchi/yomiage/internal/audioio"
)

// Default engine URLs.
const (
	VoicevoxURL    = "http://127.0.0.1:50021"
	AivisSpeechURL = "http://127.0.0.1:10101"
)

// Voicevox talks to a VOICEVOX ENGINE instance, or any server exposing
// the compatible API (AivisSpeech). The audio query carries the engine's
// own kana reading of the text, which doubles as the second
// pronunciation hypothesis for risk scoring.
type Voicevox struct {
	kind       Kind
	baseURL    string
	speaker    int
	httpClient *http.Client
}

// NewVoicevox resolves the speaker ID up front; a missing speaker is a
// configuration error raised before any network call.
func NewVoicevox(cfg Config) (*Voicevox, error) {
	speaker, err := ResolveSpeaker(cfg)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Kind == KindAivisSpeech {
			baseURL = AivisSpeechURL
		} else {
			baseURL = VoicevoxURL
		}
	}

	timeout := 30 * time.Second
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Voicevox{
		kind:       cfg.Kind,
		baseURL:    baseURL,
		speaker:    speaker,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the engine's display name.
func (v *Voicevox) Name() string {
	if v.kind == KindAivisSpeech {
		return "AivisSpeech"
	}
	return "VOICEVOX Engine"
}

// Kind returns the engine variant.
func (v *Voicevox) Kind() Kind { return v.kind }

// IsAvailable checks the engine's version endpoint.
func (v *Voicevox) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", v.baseURL+"/version", nil)
	if err != nil {
		return false
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("engine", string(v.kind)).Msg("Availability check failed")
		return false
	}
	defer resp.Body.Close()

	available := resp.StatusCode == http.StatusOK
	log.Debug().Bool("available", available).Str("engine", string(v.kind)).Msg("Engine availability")
	return available
}

// audioQuery posts the phonetic query and returns the raw query JSON.
func (v *Voicevox) audioQuery(ctx context.Context, text string) ([]byte, error) {
	queryURL := fmt.Sprintf("%s/audio_query?speaker=%d&text=%s", v.baseURL, v.speaker, url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, "POST", queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio query request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("audio query failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// GetReading queries the engine and extracts its kana reading of text.
func (v *Voicevox) GetReading(ctx context.Context, text string) (string, error) {
	queryData, err := v.audioQuery(ctx, text)
	if err != nil {
		return "", err
	}

	var query struct {
		Kana string `json:"kana"`
	}
	if err := json.Unmarshal(queryData, &query); err != nil {
		return "", fmt.Errorf("failed to parse audio query response: %w", err)
	}
	return query.Kana, nil
}

// Synthesize runs the audio query and synthesis round trip and measures
// the produced WAV's duration from its frames.
func (v *Voicevox) Synthesize(ctx context.Context, text string) ([]byte, float64, error) {
	queryData, err := v.audioQuery(ctx, text)
	if err != nil {
		return nil, 0, err
	}

	synthURL := fmt.Sprintf("%s/synthesis?speaker=%d", v.baseURL, v.speaker)
	req, err := http.NewRequestWithContext(ctx, "POST", synthURL, bytes.NewReader(queryData))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("synthesis failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read synthesis response: %w", err)
	}

	duration, _, err := audioio.DurationBytes(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to measure synthesized audio: %w", err)
	}

	log.Debug().
		Str("engine", string(v.kind)).
		Int("speaker", v.speaker).
		Float64("duration_sec", duration).
		Msg("Synthesis successful")
	return data, duration, nil
}

// Speaker is one voice exposed by a VOICEVOX-family engine.
type Speaker struct {
	Name   string `json:"name"`
	Styles []struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"styles"`
}

// ListSpeakers returns the engine's speaker catalog.
func (v *Voicevox) ListSpeakers(ctx context.Context) ([]Speaker, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", v.baseURL+"/speakers", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create speakers request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list speakers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speakers request failed: status %d", resp.StatusCode)
	}

	var speakers []Speaker
	if err := json.NewDecoder(resp.Body).Decode(&speakers); err != nil {
		return nil, fmt.Errorf("failed to parse speakers response: %w", err)
	}
	return speakers, nil
}
