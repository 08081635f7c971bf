package tts

import (
	"sort"
	"strings"
)

// hazardSurfaces lists surface forms known to have multiple readings with
// different meanings. These are always escalated for adjudication
// regardless of engine agreement.
var hazardSurfaces = map[string]struct{}{
	"今日": {}, "明日": {}, "昨日": {}, "一日": {}, "二日": {},
	"上手": {}, "下手": {}, "大事": {}, "人気": {}, "大勢": {},
	"辛い": {}, "怒り": {}, "最中": {}, "市場": {}, "大家": {},
	"行った": {}, "何": {}, "方": {}, "他": {}, "金星": {},
	"仮名": {}, "風車": {}, "生物": {},
}

// harmless kana substitutions: long-vowel and historical-spelling
// variants the two engines legitimately disagree on.
var harmlessKanaPairs = map[[2]rune]struct{}{
	{'ウ', 'オ'}: {}, {'オ', 'ウ'}: {},
	{'イ', 'エ'}: {}, {'エ', 'イ'}: {},
	{'ヅ', 'ズ'}: {}, {'ズ', 'ヅ'}: {},
	{'ヂ', 'ジ'}: {}, {'ジ', 'ヂ'}: {},
	{'ハ', 'ワ'}: {}, {'ワ', 'ハ'}: {},
	{'ヘ', 'エ'}: {}, {'エ', 'ヘ'}: {},
	{'ヲ', 'オ'}: {}, {'オ', 'ヲ'}: {},
	{'ー', 'ウ'}: {}, {'ウ', 'ー'}: {},
	{'ー', 'オ'}: {}, {'オ', 'ー'}: {},
}

// IsTrivialDiff reports whether two kana strings differ only by a single
// harmless phonetic variant (e.g. キョウ vs キョオ). Strings differing by
// more than one character, or by a substitution that changes lexical
// meaning (ツライ vs カライ), are not trivial. This is a hard-coded
// string rule, not a semantic model.
func IsTrivialDiff(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) {
		return false
	}
	diffs := 0
	var pair [2]rune
	for i := range ra {
		if ra[i] != rb[i] {
			diffs++
			if diffs > 1 {
				return false
			}
			pair = [2]rune{ra[i], rb[i]}
		}
	}
	_, harmless := harmlessKanaPairs[pair]
	return harmless
}

const (
	riskReasonBlockDiff = "block_diff"
	riskHazardScore     = 1.0
	riskBlockDiffScore  = 0.6
)

// RiskConfig bounds the adjudication workload.
type RiskConfig struct {
	// MaxExamples caps the example sentences attached per surface in
	// vocabulary-level requests.
	MaxExamples int
	// MaxRequests caps the total number of LLM requests; lower-scored
	// spans are dropped first. Zero means unbounded.
	MaxRequests int
}

// DefaultRiskConfig returns the bounds used by production runs.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{MaxExamples: 3, MaxRequests: 40}
}

// Block is a sentence-level span of consecutive tokens.
type Block struct {
	ID     int
	Tokens []Token
}

// sentence enders that close a block.
func isBlockEnder(surface string) bool {
	switch surface {
	case "。", "！", "？", "!", "?", "\n":
		return true
	}
	return strings.ContainsAny(surface, "。！？\n")
}

// SplitBlocks groups tokens into sentence-level blocks. Silence tokens
// close the running block and form no block of their own.
func SplitBlocks(tokens []Token) []Block {
	var blocks []Block
	var cur []Token
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, Block{ID: len(blocks), Tokens: cur})
			cur = nil
		}
	}
	for _, tok := range tokens {
		if tok.IsSilence() {
			flush()
			continue
		}
		cur = append(cur, tok)
		if isBlockEnder(tok.Surface) {
			flush()
		}
	}
	flush()
	return blocks
}

// blockMecabReading concatenates the dictionary readings of a block's
// lexical tokens in normalized form.
func blockMecabReading(b Block) string {
	var sb strings.Builder
	for _, tok := range b.Tokens {
		if tok.ReadingMecab != "" {
			sb.WriteString(tok.ReadingMecab)
		}
	}
	return NormalizeKana(sb.String())
}

// ScoreRisk compares the dictionary reading stream against the engine
// reading block-by-block and returns flagged spans ordered by descending
// risk score. Hazard-listed surfaces are always flagged; other tokens are
// flagged only when their block's reading disagrees with the engine
// beyond the triviality rule.
func ScoreRisk(tokens []Token, engine KanaEngine) []RiskySpan {
	blocks := SplitBlocks(tokens)
	flagged := map[int]bool{}
	var spans []RiskySpan

	for _, b := range blocks {
		for _, tok := range b.Tokens {
			if _, ok := hazardSurfaces[tok.Surface]; ok && !flagged[tok.Index] {
				flagged[tok.Index] = true
				spans = append(spans, RiskySpan{
					BlockID:    b.ID,
					TokenIndex: tok.Index,
					Surface:    tok.Surface,
					RiskScore:  riskHazardScore,
					Reason:     "hazard:" + tok.Surface,
				})
			}
		}

		blockReading := blockMecabReading(b)
		if blockReading == "" || containsTrivial(engine.Normalized, blockReading) {
			continue
		}
		for _, tok := range b.Tokens {
			if flagged[tok.Index] || tok.ReadingMecab == "" || !hasNonKana(tok.Surface) {
				continue
			}
			if strings.HasPrefix(tok.POS, "記号") {
				continue
			}
			flagged[tok.Index] = true
			spans = append(spans, RiskySpan{
				BlockID:    b.ID,
				TokenIndex: tok.Index,
				Surface:    tok.Surface,
				RiskScore:  riskBlockDiffScore,
				Reason:     riskReasonBlockDiff,
			})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].RiskScore > spans[j].RiskScore
	})
	return spans
}

// containsTrivial reports whether needle, or a single-harmless-variant of
// it, appears in haystack. This is the block-level triviality threshold:
// vowel-length noise does not count as a disagreement.
func containsTrivial(haystack, needle string) bool {
	if strings.Contains(haystack, needle) {
		return true
	}
	hs, ns := []rune(haystack), []rune(needle)
	if len(ns) == 0 || len(hs) < len(ns) {
		return false
	}
	for i := 0; i+len(ns) <= len(hs); i++ {
		if IsTrivialDiff(string(hs[i:i+len(ns)]), string(ns)) {
			return true
		}
	}
	return false
}

// hasNonKana reports whether the surface contains anything beyond kana
// and the long-vowel mark, i.e. characters whose reading is ambiguous.
func hasNonKana(s string) bool {
	for _, r := range s {
		if r == 'ー' || (r >= 'ぁ' && r <= 'ゖ') || (r >= 'ァ' && r <= 'ヶ') {
			continue
		}
		return true
	}
	return false
}

// LLMRequestKind distinguishes vocabulary-level requests, which batch all
// occurrences of one hazard surface, from per-occurrence requests.
type LLMRequestKind string

const (
	RequestVocabulary LLMRequestKind = "vocabulary"
	RequestOccurrence LLMRequestKind = "occurrence"
)

// LLMRequest is one bounded, deduplicated adjudication unit handed to the
// annotator.
type LLMRequest struct {
	Kind         LLMRequestKind `json:"kind"`
	Surface      string         `json:"surface"`
	TokenIndexes []int          `json:"token_indexes"`
	Examples     []string       `json:"examples,omitempty"`
	RiskScore    float64        `json:"risk_score"`
}

// BuildLLMRequests groups risky spans into adjudication requests. Hazard
// spans for the same surface collapse into one vocabulary request with at
// most cfg.MaxExamples example sentences; block_diff spans stay
// per-occurrence. When cfg.MaxRequests is set, lower-scored requests are
// dropped past the cap.
func BuildLLMRequests(spans []RiskySpan, tokens []Token, cfg RiskConfig) []LLMRequest {
	blocks := SplitBlocks(tokens)
	blockText := make(map[int]string, len(blocks))
	tokenBlock := make(map[int]int)
	for _, b := range blocks {
		var sb strings.Builder
		for _, tok := range b.Tokens {
			sb.WriteString(tok.Surface)
			tokenBlock[tok.Index] = b.ID
		}
		blockText[b.ID] = sb.String()
	}

	// Requests are collected behind pointers so that vocabulary entries
	// keep accumulating occurrences after later appends.
	var ordered []*LLMRequest
	vocab := map[string]*LLMRequest{}

	for _, span := range spans {
		if strings.HasPrefix(span.Reason, "hazard:") {
			req, ok := vocab[span.Surface]
			if !ok {
				req = &LLMRequest{
					Kind:      RequestVocabulary,
					Surface:   span.Surface,
					RiskScore: span.RiskScore,
				}
				vocab[span.Surface] = req
				ordered = append(ordered, req)
			}
			req.TokenIndexes = append(req.TokenIndexes, span.TokenIndex)
			if cfg.MaxExamples <= 0 || len(req.Examples) < cfg.MaxExamples {
				if text, ok := blockText[tokenBlock[span.TokenIndex]]; ok {
					req.Examples = append(req.Examples, text)
				}
			}
			continue
		}
		ordered = append(ordered, &LLMRequest{
			Kind:         RequestOccurrence,
			Surface:      span.Surface,
			TokenIndexes: []int{span.TokenIndex},
			RiskScore:    span.RiskScore,
		})
	}

	requests := make([]LLMRequest, 0, len(ordered))
	for _, req := range ordered {
		requests = append(requests, *req)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].RiskScore > requests[j].RiskScore
	})
	if cfg.MaxRequests > 0 && len(requests) > cfg.MaxRequests {
		requests = requests[:cfg.MaxRequests]
	}
	return requests
}
