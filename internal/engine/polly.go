package engine

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/rs/zerolog/log"

	"github.com/daideguchi/yomiage/internal/audioio"
)

// PollyClient is the slice of the Polly API the engine uses; tests
// substitute a fake.
type PollyClient interface {
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Polly is a narrator engine backed by Amazon Polly. PCM output is
// requested and wrapped into WAV so durations come from real frame
// counts like every other engine.
type Polly struct {
	client     PollyClient
	voiceID    string
	sampleRate int
}

// NewPolly loads AWS credentials from the default chain.
func NewPolly(ctx context.Context, cfg Config) (*Polly, error) {
	region := cfg.Region
	if region == "" {
		region = "ap-northeast-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	voiceID := cfg.Voice
	if voiceID == "" {
		voiceID = "Takumi"
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}

	return &Polly{
		client:     polly.NewFromConfig(awsCfg),
		voiceID:    voiceID,
		sampleRate: sampleRate,
	}, nil
}

// Name returns the engine's display name.
func (p *Polly) Name() string { return "Amazon Polly" }

// Kind returns the engine variant.
func (p *Polly) Kind() Kind { return KindPolly }

// IsAvailable probes the service with a voice listing.
func (p *Polly) IsAvailable(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.DescribeVoices(checkCtx, &polly.DescribeVoicesInput{})
	return err == nil
}

// GetReading is unsupported; callers use the dictionary reading.
func (p *Polly) GetReading(ctx context.Context, text string) (string, error) {
	return "", ErrReadingUnsupported
}

// Synthesize requests raw PCM, wraps it into WAV and measures the
// duration from the decoded frames.
func (p *Polly) Synthesize(ctx context.Context, text string) ([]byte, float64, error) {
	if text == "" {
		return nil, 0, fmt.Errorf("text cannot be empty")
	}

	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(p.voiceID),
		OutputFormat: types.OutputFormatPcm,
		Engine:       types.EngineNeural,
		SampleRate:   aws.String(strconv.Itoa(p.sampleRate)),
		LanguageCode: types.LanguageCodeJaJp,
		TextType:     types.TextTypeText,
	}

	result, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer result.AudioStream.Close()

	raw, err := io.ReadAll(result.AudioStream)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read audio stream: %w", err)
	}

	data, err := audioio.PCMToWAV(raw, p.sampleRate)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to wrap pcm stream: %w", err)
	}

	duration, _, err := audioio.DurationBytes(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to measure synthesized audio: %w", err)
	}

	log.Debug().
		Str("voice_id", p.voiceID).
		Int("sample_rate", p.sampleRate).
		Float64("duration_sec", duration).
		Msg("Polly synthesis successful")
	return data, duration, nil
}
