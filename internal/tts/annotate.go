package tts

import (
	"context"
	"encoding/json"
	"fmt"
)

// RiskyToken is the flagged-token subset sent for adjudication.
type RiskyToken struct {
	Index        int    `json:"index"`
	Surface      string `json:"surface"`
	ReadingMecab string `json:"reading_mecab"`
	Reason       string `json:"reason"`
}

// AnnotationPayload is the adjudication request handed to the annotator.
type AnnotationPayload struct {
	OriginalText         string       `json:"original_text"`
	Tokens               []RiskyToken `json:"tokens"`
	KanaEngineNormalized string       `json:"kana_engine_normalized"`
}

// Annotator adjudicates flagged tokens. Implementations live outside the
// pipeline core; an annotation failure aborts the run rather than
// falling back to "no risk".
type Annotator interface {
	AnnotateTokens(ctx context.Context, payload AnnotationPayload) ([]Annotation, error)
}

// BuildAnnotationPayload assembles the bounded request from the original
// text, the flagged requests and the normalized engine reading.
func BuildAnnotationPayload(aText string, tokens []Token, requests []LLMRequest, engine KanaEngine) AnnotationPayload {
	byIndex := make(map[int]Token, len(tokens))
	for _, tok := range tokens {
		byIndex[tok.Index] = tok
	}

	seen := map[int]bool{}
	payload := AnnotationPayload{
		OriginalText:         aText,
		KanaEngineNormalized: engine.Normalized,
	}
	for _, req := range requests {
		for _, idx := range req.TokenIndexes {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			tok := byIndex[idx]
			payload.Tokens = append(payload.Tokens, RiskyToken{
				Index:        tok.Index,
				Surface:      tok.Surface,
				ReadingMecab: tok.ReadingMecab,
				Reason:       string(req.Kind),
			})
		}
	}
	return payload
}

// rawAnnotation mirrors the wire shape; Index is a pointer so a missing
// field is distinguishable from index zero.
type rawAnnotation struct {
	Index          *int   `json:"index"`
	Surface        string `json:"surface"`
	LLMReadingKana string `json:"llm_reading_kana"`
	Reading        string `json:"reading"`
	WriteMode      string `json:"write_mode"`
	RiskLevel      int    `json:"risk_level"`
	Reason         string `json:"reason"`
}

type rawAnnotationResponse struct {
	TokenAnnotations []rawAnnotation `json:"token_annotations"`
}

// ParseAnnotations validates a structured annotator response strictly.
// Every entry must carry an index referencing an existing token; a
// single missing or unknown index fails the entire response so garbled
// output cannot silently corrupt half the script.
func ParseAnnotations(data []byte, tokens []Token) ([]Annotation, error) {
	var resp rawAnnotationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse annotation response: %w", err)
	}

	byIndex := make(map[int]Token, len(tokens))
	for _, tok := range tokens {
		byIndex[tok.Index] = tok
	}

	annotations := make([]Annotation, 0, len(resp.TokenAnnotations))
	for i, raw := range resp.TokenAnnotations {
		if raw.Index == nil {
			return nil, fmt.Errorf("annotation %d is missing required field \"index\"", i)
		}
		tok, ok := byIndex[*raw.Index]
		if !ok {
			return nil, fmt.Errorf("annotation %d references unknown token index %d", i, *raw.Index)
		}

		mode, err := parseWriteMode(raw.WriteMode)
		if err != nil {
			return nil, fmt.Errorf("annotation for token %d: %w", *raw.Index, err)
		}

		reading := raw.LLMReadingKana
		if reading == "" {
			reading = raw.Reading
		}
		if reading == "" {
			reading = tok.ReadingMecab
		}
		surface := raw.Surface
		if surface == "" {
			surface = tok.Surface
		}

		annotations = append(annotations, Annotation{
			Index:          *raw.Index,
			Surface:        surface,
			LLMReadingKana: reading,
			WriteMode:      mode,
			RiskLevel:      raw.RiskLevel,
			Reason:         raw.Reason,
		})
	}
	return annotations, nil
}

func parseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(s) {
	case WriteOriginal, WriteHiragana, WriteKatakana:
		return WriteMode(s), nil
	case "":
		return WriteOriginal, nil
	}
	return "", fmt.Errorf("invalid write_mode %q", s)
}
