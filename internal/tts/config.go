package tts

// Config holds the knobs of a pipeline run. It is threaded explicitly
// through the pipeline so tests can vary behavior without touching
// process state.
type Config struct {
	// StripMarkdown removes markdown decoration before tokenization.
	StripMarkdown bool `json:"strip_markdown"`

	// StrictControlChars aborts the run when the source contains C0/C1
	// control characters instead of logging and continuing.
	StrictControlChars bool `json:"strict_control_chars"`

	// MaxChunkLen caps one synthesis request in runes.
	MaxChunkLen int `json:"max_chunk_len"`

	// ChunkPauseSec is the silence inserted between consecutive chunks
	// that were split from the same prose run.
	ChunkPauseSec float64 `json:"chunk_pause_sec"`

	// HeadingPrePauseSec and HeadingPostPauseSec pad segments that read a
	// detected heading line.
	HeadingPrePauseSec  float64 `json:"heading_pre_pause_sec"`
	HeadingPostPauseSec float64 `json:"heading_post_pause_sec"`

	Risk RiskConfig `json:"risk"`
}

// DefaultConfig returns the settings used by the CLI when no overrides
// are given.
func DefaultConfig() Config {
	return Config{
		StripMarkdown:       true,
		MaxChunkLen:         120,
		ChunkPauseSec:       0.3,
		HeadingPrePauseSec:  0.8,
		HeadingPostPauseSec: 0.5,
		Risk:                DefaultRiskConfig(),
	}
}
