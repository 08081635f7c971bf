// Package llm implements the pronunciation adjudicator against an
// OpenAI-compatible chat completions API. OpenRouter is reached through
// the same client with a base-URL override.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"

	"github.com/daideguchi/yomiage/internal/tts"
)

const (
	defaultModelOpenAI     = "gpt-4.1-mini"
	defaultModelOpenRouter = "openai/gpt-4.1-mini"
	defaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	requestTimeout         = 60 * time.Second
)

// Config selects the adjudication provider and model.
type Config struct {
	Provider string `json:"provider,omitempty"` // openai or openrouter
	Model    string `json:"model,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// Client adjudicates flagged tokens via chat completions. It implements
// tts.Annotator.
type Client struct {
	client openai.Client
	model  string
}

// NewClient resolves credentials before any network call; a missing API
// key is a configuration error.
func NewClient(cfg Config) (*Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}

	var (
		apiKey  string
		baseURL string
		model   string
		opts    []option.RequestOption
	)

	switch provider {
	case "openrouter":
		apiKey = firstNonEmpty(cfg.APIKey, os.Getenv("OPENROUTER_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("OpenRouter API key is required: set OPENROUTER_API_KEY")
		}
		baseURL = firstNonEmpty(cfg.BaseURL, defaultOpenRouterURL)
		model = firstNonEmpty(cfg.Model, defaultModelOpenRouter)
		if !strings.Contains(model, "/") {
			model = "openai/" + model
		}
	case "openai":
		apiKey = firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required: set OPENAI_API_KEY")
		}
		baseURL = cfg.BaseURL
		model = firstNonEmpty(cfg.Model, defaultModelOpenAI)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	opts = append(opts, option.WithAPIKey(apiKey))
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

const systemPrompt = "あなたは日本語の読み上げ原稿の校正者です。" +
	"与えられたトークンの正しい読みを判定し、JSONのみを出力してください。"

// AnnotateTokens sends the risk payload for adjudication and validates
// the structured response strictly. Network and parse failures propagate
// to the caller; retrying or escalating is the caller's decision.
func (c *Client) AnnotateTokens(ctx context.Context, payload tts.AnnotationPayload) ([]tts.Annotation, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotation payload: %w", err)
	}

	userPrompt := "対象トークンの読みを判定してください。\n" +
		"各トークンについて index、llm_reading_kana（カタカナ）、" +
		"write_mode（original|hiragana|katakana）、risk_level（1-3）、reason を返します。\n" +
		"kana_engine_normalized は音声合成エンジン側の読み、reading_mecab は辞書の読みです。\n" +
		"読みが文脈に対して正しい場合は write_mode を original にしてください。\n\n" +
		"出力形式:\n" +
		`{"token_annotations":[{"index":0,"llm_reading_kana":"キョウ","write_mode":"hiragana","risk_level":2,"reason":"..."}]}` + "\n\n" +
		"入力:\n" + string(payloadBytes)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       c.model,
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "token_annotations",
					Strict: openai.Bool(true),
					Schema: annotationSchema(),
				},
			},
		},
	}

	resp, err := c.client.Chat.Completions.New(reqCtx, params)
	if err != nil {
		// Some gateways reject json_schema; fall back to json_object
		// and rely on strict parsing.
		if shouldFallbackJSONMode(err) {
			log.Debug().Err(err).Msg("json_schema rejected, retrying with json_object")
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
			}
			resp, err = c.client.Chat.Completions.New(reqCtx, params)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("annotation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("annotation response contained no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if raw == "" {
		return nil, fmt.Errorf("annotation response was empty")
	}

	tokens := make([]tts.Token, 0, len(payload.Tokens))
	for _, rt := range payload.Tokens {
		tokens = append(tokens, tts.Token{
			Index:        rt.Index,
			Surface:      rt.Surface,
			ReadingMecab: rt.ReadingMecab,
		})
	}
	return tts.ParseAnnotations([]byte(stripCodeFence(raw)), tokens)
}

func shouldFallbackJSONMode(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "json_schema") ||
		strings.Contains(msg, "response_format") ||
		(strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema"))
}

// stripCodeFence unwraps ```json blocks some models insist on.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func annotationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"token_annotations"},
		"properties": map[string]interface{}{
			"token_annotations": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"index", "llm_reading_kana", "write_mode", "risk_level", "reason"},
					"properties": map[string]interface{}{
						"index":            map[string]interface{}{"type": "integer"},
						"llm_reading_kana": map[string]interface{}{"type": "string"},
						"write_mode": map[string]interface{}{
							"type": "string",
							"enum": []string{"original", "hiragana", "katakana"},
						},
						"risk_level": map[string]interface{}{"type": "integer"},
						"reason":     map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
