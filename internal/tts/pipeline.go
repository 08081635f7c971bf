package tts

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/daideguchi/yomiage/internal/audioio"
	"github.com/daideguchi/yomiage/internal/engine"
)

// RunRequest identifies one script to read aloud and where its artifacts
// go.
type RunRequest struct {
	Channel  string
	VideoNo  string
	ScriptID string
	AText    string
	OutDir   string
}

// Pipeline runs the full reading pipeline: preprocess, tokenize, dual
// reading, risk scoring, LLM adjudication, B-text build, chunked
// synthesis, concatenation, subtitles and the provenance log.
type Pipeline struct {
	cfg       Config
	engine    engine.Engine
	annotator Annotator
	tokenizer *Tokenizer
}

// NewPipeline wires a pipeline. annotator may be nil, in which case
// flagged tokens are left unadjudicated and read with their original
// surface.
func NewPipeline(cfg Config, eng engine.Engine, annotator Annotator) (*Pipeline, error) {
	tok, err := NewTokenizer()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, engine: eng, annotator: annotator, tokenizer: tok}, nil
}

// Run executes the pipeline for one script. Final artifacts (final.wav,
// output.srt, tts_log.json and siblings) are written only after every
// stage succeeded; a failed run leaves at most the chunks/ scratch
// directory, which is removed on the way out.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*PipelineResult, error) {
	if strings.TrimSpace(req.AText) == "" {
		return nil, fmt.Errorf("script text is empty")
	}
	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	aText, meta := Preprocess(req.AText, PreprocessOptions{StripMarkdown: p.cfg.StripMarkdown})
	for _, cc := range meta.ControlChars {
		log.Warn().Int("position", cc.Position).Str("code_point", cc.CodePoint).Msg("control character in source text")
	}
	if p.cfg.StrictControlChars && len(meta.ControlChars) > 0 {
		return nil, fmt.Errorf("source text contains %d control characters", len(meta.ControlChars))
	}

	tokens, err := p.tokenizer.Tokenize(aText)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}
	log.Debug().Int("tokens", len(tokens)).Msg("tokenized")

	kana, err := BuildKanaEngine(ctx, p.engine, aText, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain engine reading: %w", err)
	}

	spans := ScoreRisk(tokens, kana)
	requests := BuildLLMRequests(spans, tokens, p.cfg.Risk)
	log.Info().Int("risky_spans", len(spans)).Int("llm_requests", len(requests)).Msg("risk scoring done")

	var annotations []Annotation
	if len(requests) > 0 && p.annotator != nil {
		payload := BuildAnnotationPayload(aText, tokens, requests, kana)
		annotations, err = p.annotator.AnnotateTokens(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("annotation failed: %w", err)
		}
	} else if len(requests) > 0 {
		log.Warn().Int("requests", len(requests)).Msg("no annotator configured, flagged tokens read as written")
	}

	bText, buildLog, err := BuildBText(aText, tokens, annotations)
	if err != nil {
		return nil, err
	}

	segments := p.planSegments(tokens, buildLog, annotations, kana, meta)
	if len(segments) == 0 {
		return nil, fmt.Errorf("nothing to synthesize after segmentation")
	}

	chunkDir := filepath.Join(req.OutDir, "chunks")
	finalPath := filepath.Join(req.OutDir, "final.wav")
	srtPath := filepath.Join(req.OutDir, "output.srt")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			os.RemoveAll(chunkDir)
			os.Remove(finalPath)
			os.Remove(srtPath)
		}
	}()

	parts := make([]audioio.Part, 0, len(segments))
	for i := range segments {
		seg := &segments[i]
		data, dur, err := p.engine.Synthesize(ctx, seg.Text)
		if err != nil {
			return nil, fmt.Errorf("synthesis of segment %d failed: %w", i, err)
		}
		wavPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%03d.wav", i))
		if err := audioio.WriteWAVFile(wavPath, data); err != nil {
			return nil, err
		}
		seg.WavPath = wavPath
		seg.DurationSec = dur
		if seg.ArbiterVerdict == VerdictVoicevox && seg.VoicevoxReading == "" {
			if r, err := p.engine.GetReading(ctx, seg.Text); err == nil {
				seg.VoicevoxReading = r
			}
		}
		parts = append(parts, audioio.Part{
			Path:           wavPath,
			PreSilenceSec:  seg.PrePauseSec,
			PostSilenceSec: seg.PostPauseSec,
		})
		log.Debug().Int("segment", i).Float64("duration_sec", dur).Msg("segment synthesized")
	}

	totalSec, sampleRate, err := audioio.Concat(finalPath, parts)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble track: %w", err)
	}

	var expected float64
	for _, seg := range segments {
		expected += seg.PrePauseSec + seg.DurationSec + seg.PostPauseSec
	}
	// Silence insertion rounds each pause to whole frames, so the
	// measured track may differ from the segment sum by up to one frame
	// per segment. Anything beyond that is a timing bug that would skew
	// the subtitles.
	tolerance := float64(len(segments))/float64(sampleRate) + 1e-3
	if math.Abs(expected-totalSec) > tolerance {
		return nil, fmt.Errorf("track duration %.3fs drifts from segment sum %.3fs", totalSec, expected)
	}

	srtEntries, err := GenerateSRT(segments, srtPath)
	if err != nil {
		return nil, err
	}

	issues := CheckSegments(segments)
	for _, issue := range issues {
		log.Warn().Int("segment", issue.SegmentIndex).Str("kind", issue.Kind).Msg(issue.Detail)
	}

	tlog := &TTSLog{
		Channel:       req.Channel,
		VideoNo:       req.VideoNo,
		ScriptID:      req.ScriptID,
		Engine:        p.engine.Name(),
		AText:         aText,
		BText:         bText,
		Tokens:        tokens,
		KanaEngine:    kana,
		RiskySpans:    spans,
		Annotations:   annotations,
		BTextBuildLog: buildLog,
		Segments:      segments,
		Audio: AudioInfo{
			WavPath:     finalPath,
			SampleRate:  sampleRate,
			DurationSec: totalSec,
		},
		EngineMetadata: map[string]string{
			"name": p.engine.Name(),
			"kind": string(p.engine.Kind()),
		},
		Meta:       meta,
		QAIssues:   issues,
		SRTEntries: srtEntries,
	}
	logPath, err := SaveTTSLog(req.OutDir, tlog)
	if err != nil {
		return nil, err
	}
	ok = true

	log.Info().
		Str("wav", finalPath).
		Str("srt", srtPath).
		Float64("duration_sec", totalSec).
		Int("segments", len(segments)).
		Msg("pipeline finished")

	return &PipelineResult{
		WavPath:     finalPath,
		SRTPath:     srtPath,
		LogPath:     logPath,
		SampleRate:  sampleRate,
		DurationSec: totalSec,
		Segments:    segments,
	}, nil
}

// run is one contiguous stretch of prose between silence directives and
// line breaks, carried with enough token context to decide its verdict.
type run struct {
	text         string
	mecabReading string
	lineIndex    int
	annotated    bool
}

// planSegments converts the build log into synthesizable segments.
// Silence directives become pre-pause on the following segment, or
// post-pause on the last one when the script ends with a directive.
// Runs longer than MaxChunkLen are chunked with a short connecting
// pause, and heading lines get their configured padding.
func (p *Pipeline) planSegments(tokens []Token, buildLog []BuildLogEntry, annotations []Annotation, kana KanaEngine, meta *PreprocessMeta) []AudioSegment {
	annotated := make(map[int]bool, len(annotations))
	for _, ann := range annotations {
		if ann.WriteMode != WriteOriginal || ann.LLMReadingKana != "" {
			annotated[ann.Index] = true
		}
	}
	headings := make(map[int]int, len(meta.Headings))
	for _, h := range meta.Headings {
		headings[h.LineIndex] = h.Level
	}

	var runs []run
	var pauses []float64 // pre-pause accumulated before runs[i]

	var cur strings.Builder
	var reading strings.Builder
	curLine := 0
	curAnnotated := false
	pending := 0.0

	flush := func() {
		text := strings.TrimSpace(cur.String())
		if text != "" {
			runs = append(runs, run{
				text:         text,
				mecabReading: reading.String(),
				lineIndex:    curLine,
				annotated:    curAnnotated,
			})
			pauses = append(pauses, pending)
			pending = 0
		}
		cur.Reset()
		reading.Reset()
		curAnnotated = false
	}

	line := 0
	for i, entry := range buildLog {
		tok := tokens[i]
		if tok.IsSilence() {
			flush()
			pending += parseSilenceSeconds(tok.Surface)
			curLine = line
			continue
		}
		if tok.ReadingMecab != "" {
			reading.WriteString(tok.ReadingMecab)
		} else if strings.TrimSpace(tok.Surface) != "" {
			reading.WriteString(tok.Surface)
		}
		if annotated[tok.Index] {
			curAnnotated = true
		}
		for _, part := range strings.SplitAfter(entry.ReplacedFragment, "\n") {
			if part == "" {
				continue
			}
			cur.WriteString(strings.TrimSuffix(part, "\n"))
			if strings.HasSuffix(part, "\n") {
				flush()
				line++
				curLine = line
			}
		}
	}
	flush()

	var segments []AudioSegment
	for ri, r := range runs {
		verdict := p.runVerdict(r, kana)
		level, isHeading := headings[r.lineIndex]
		chunks := ChunkBText(r.text, p.cfg.MaxChunkLen)
		for ci, chunk := range chunks {
			seg := AudioSegment{
				Text:              chunk,
				Reading:           chunk,
				OriginalLineIndex: r.lineIndex,
				MecabReading:      r.mecabReading,
				ArbiterVerdict:    verdict,
			}
			if ci == 0 {
				seg.PrePauseSec = pauses[ri]
			} else {
				seg.PrePauseSec = p.cfg.ChunkPauseSec
			}
			if isHeading {
				seg.IsHeading = true
				seg.HeadingLevel = level
				if ci == 0 {
					seg.PrePauseSec += p.cfg.HeadingPrePauseSec
				}
				if ci == len(chunks)-1 {
					seg.PostPauseSec = p.cfg.HeadingPostPauseSec
				}
			}
			segments = append(segments, seg)
		}
	}
	// A trailing silence directive has no following segment to attach to.
	if pending > 0 && len(segments) > 0 {
		segments[len(segments)-1].PostPauseSec += pending
	}
	return segments
}

func (p *Pipeline) runVerdict(r run, kana KanaEngine) ArbiterVerdict {
	if r.annotated {
		return VerdictLLMFixed
	}
	if containsTrivial(kana.Normalized, NormalizeKana(r.mecabReading)) {
		return VerdictMatch
	}
	switch p.engine.Kind() {
	case engine.KindVoicevox, engine.KindAivisSpeech:
		return VerdictVoicevox
	default:
		return VerdictMecab
	}
}

// parseSilenceSeconds extracts the pause length from a silence token
// surface such as "[2]" or "[1.5s]".
func parseSilenceSeconds(surface string) float64 {
	m := silenceTagRe.FindStringSubmatch(surface)
	if m == nil {
		return 0
	}
	sec, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return sec
}
