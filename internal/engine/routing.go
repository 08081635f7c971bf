package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// SpeakerEnvVar supplies the synthesizer voice ID when the routing table
// leaves it unset.
const SpeakerEnvVar = "YOMIAGE_SPEAKER_ID"

// Config describes one engine selection. Zero fields inherit from the
// level below in the routing table.
type Config struct {
	Kind              Kind   `json:"kind,omitempty"`
	BaseURL           string `json:"base_url,omitempty"`
	SpeakerID         int    `json:"speaker_id,omitempty"`
	FallbackSpeakerID int    `json:"fallback_speaker_id,omitempty"`
	Voice             string `json:"voice,omitempty"`
	Model             string `json:"model,omitempty"`
	Region            string `json:"region,omitempty"`
	LanguageCode      string `json:"language_code,omitempty"`
	SampleRate        int    `json:"sample_rate,omitempty"`
	TimeoutSec        int    `json:"timeout_sec,omitempty"`
}

// Routing is the engine override table: script-level override beats
// channel-level override beats the global default.
type Routing struct {
	Default  Config            `json:"default"`
	Channels map[string]Config `json:"channels,omitempty"`
	Scripts  map[string]Config `json:"scripts,omitempty"`
}

// DefaultRouting targets a local VOICEVOX engine.
func DefaultRouting() *Routing {
	return &Routing{
		Default: Config{
			Kind:    KindVoicevox,
			BaseURL: "http://127.0.0.1:50021",
		},
	}
}

// Resolve returns the effective engine config for one (channel, video)
// job, merging overrides field-by-field from global to script level.
func (r *Routing) Resolve(channel, videoNo string) Config {
	cfg := r.Default
	if ch, ok := r.Channels[channel]; ok {
		cfg = overlay(cfg, ch)
	}
	if sc, ok := r.Scripts[channel+"/"+videoNo]; ok {
		cfg = overlay(cfg, sc)
	}
	return cfg
}

func overlay(base, over Config) Config {
	if over.Kind != "" {
		base.Kind = over.Kind
	}
	if over.BaseURL != "" {
		base.BaseURL = over.BaseURL
	}
	if over.SpeakerID != 0 {
		base.SpeakerID = over.SpeakerID
	}
	if over.FallbackSpeakerID != 0 {
		base.FallbackSpeakerID = over.FallbackSpeakerID
	}
	if over.Voice != "" {
		base.Voice = over.Voice
	}
	if over.Model != "" {
		base.Model = over.Model
	}
	if over.Region != "" {
		base.Region = over.Region
	}
	if over.LanguageCode != "" {
		base.LanguageCode = over.LanguageCode
	}
	if over.SampleRate != 0 {
		base.SampleRate = over.SampleRate
	}
	if over.TimeoutSec != 0 {
		base.TimeoutSec = over.TimeoutSec
	}
	return base
}

// ResolveSpeaker determines the voice ID for a VOICEVOX-family engine
// before any network call is made. An unset speaker with no configured
// numeric fallback is a hard configuration error.
func ResolveSpeaker(cfg Config) (int, error) {
	if cfg.SpeakerID != 0 {
		return cfg.SpeakerID, nil
	}
	if raw := os.Getenv(SpeakerEnvVar); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", SpeakerEnvVar, raw, err)
		}
		return id, nil
	}
	if cfg.FallbackSpeakerID != 0 {
		log.Warn().
			Int("speaker", cfg.FallbackSpeakerID).
			Msg("Speaker ID unset, using configured fallback")
		return cfg.FallbackSpeakerID, nil
	}
	return 0, fmt.Errorf("speaker ID is not configured: set speaker_id in the routing table or the %s environment variable", SpeakerEnvVar)
}

// RoutingLoader loads the routing table with project-then-global
// precedence.
type RoutingLoader struct {
	projectPath string
	globalPath  string
}

// NewRoutingLoader creates a loader using the conventional locations.
func NewRoutingLoader() *RoutingLoader {
	homeDir, _ := os.UserHomeDir()
	return &RoutingLoader{
		projectPath: filepath.Join(".yomiage", "routing.json"),
		globalPath:  filepath.Join(homeDir, ".yomiage", "routing.json"),
	}
}

// Load returns the first routing table found under workDir then the home
// directory, or the default VOICEVOX routing when neither exists.
func (l *RoutingLoader) Load(workDir string) (*Routing, error) {
	projectPath := filepath.Join(workDir, l.projectPath)
	if r, err := l.loadFromFile(projectPath); err == nil {
		log.Debug().Str("path", projectPath).Msg("Loaded project routing table")
		return r, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if r, err := l.loadFromFile(l.globalPath); err == nil {
		log.Debug().Str("path", l.globalPath).Msg("Loaded global routing table")
		return r, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	log.Debug().Msg("No routing table found, using defaults")
	return DefaultRouting(), nil
}

// LoadFromPath loads a routing table from an explicit path.
func (l *RoutingLoader) LoadFromPath(path string) (*Routing, error) {
	return l.loadFromFile(path)
}

func (l *RoutingLoader) loadFromFile(path string) (*Routing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Routing
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse routing table %s: %w", path, err)
	}
	if r.Default.Kind == "" {
		r.Default.Kind = KindVoicevox
	}
	return &r, nil
}
