package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daideguchi/yomiage/internal/engine"
	"github.com/daideguchi/yomiage/internal/llm"
	"github.com/daideguchi/yomiage/internal/tts"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "yomiage",
		Usage: "Japanese script-to-narration pipeline with pronunciation auditing",
		Description: `yomiage turns a Japanese script into narrated audio with subtitles.
It cross-checks the synthesis engine's reading against a morphological
dictionary, asks an LLM to adjudicate the spots where they disagree, and
records every pronunciation decision in a reviewable log.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Read one script into final.wav, output.srt and tts_log.json",
				Action:    handleRun,
				Aliases:   []string{"r"},
				ArgsUsage: "<script.txt>",
				Flags:     append(engineFlags(), runFlags()...),
			},
			{
				Name:      "batch",
				Usage:     "Read every script in a directory, isolating per-script failures",
				Action:    handleBatch,
				Aliases:   []string{"b"},
				ArgsUsage: "<scripts-dir>",
				Flags:     append(engineFlags(), runFlags()...),
			},
			{
				Name:   "engines",
				Usage:  "Probe engine availability and list speakers",
				Action: handleEngines,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "channel",
						Usage: "Channel name used for routing",
					},
					&cli.StringFlag{
						Name:  "video",
						Usage: "Video number used for routing",
					},
				),
			},
			{
				Name:      "tokenize",
				Usage:     "Dump the token table for a script (debugging aid)",
				Action:    handleTokenize,
				ArgsUsage: "<script.txt>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "keep-markdown",
						Usage: "Skip markdown stripping before tokenization",
					},
				},
			},
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "engine",
			Usage: "Engine kind: voicevox, aivisspeech, openai, polly, gcp (overrides routing)",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Engine base URL for voicevox/aivisspeech",
		},
		&cli.IntFlag{
			Name:  "speaker",
			Usage: "Numeric speaker ID for voicevox/aivisspeech",
		},
		&cli.StringFlag{
			Name:  "routing",
			Usage: "Path to an explicit routing table (default: .yomiage/routing.json)",
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "channel",
			Usage: "Channel name used for routing and the log",
		},
		&cli.StringFlag{
			Name:  "video",
			Usage: "Video number used for routing and the log",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Output directory",
			Value:   "out",
		},
		&cli.StringFlag{
			Name:  "llm-provider",
			Usage: "Annotator provider: openai, openrouter",
			Value: "openai",
		},
		&cli.StringFlag{
			Name:  "llm-model",
			Usage: "Annotator model (provider default when empty)",
		},
		&cli.BoolFlag{
			Name:  "no-llm",
			Usage: "Skip LLM adjudication, flagged tokens are read as written",
		},
		&cli.BoolFlag{
			Name:  "keep-markdown",
			Usage: "Skip markdown stripping before tokenization",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail on control characters instead of warning",
		},
		&cli.IntFlag{
			Name:  "max-chunk",
			Usage: "Maximum synthesis chunk length in characters",
			Value: 120,
		},
	}
}

// resolveEngineConfig merges the routing table with CLI overrides for one
// (channel, video) job.
func resolveEngineConfig(c *cli.Command, channel, videoNo string) (engine.Config, error) {
	loader := engine.NewRoutingLoader()

	var routing *engine.Routing
	var err error
	if path := c.String("routing"); path != "" {
		routing, err = loader.LoadFromPath(path)
	} else {
		routing, err = loader.Load(".")
	}
	if err != nil {
		return engine.Config{}, fmt.Errorf("failed to load routing table: %w", err)
	}

	cfg := routing.Resolve(channel, videoNo)
	if kind := c.String("engine"); kind != "" {
		cfg.Kind = engine.Kind(kind)
	}
	if baseURL := c.String("base-url"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if speaker := int(c.Int("speaker")); speaker != 0 {
		cfg.SpeakerID = speaker
	}
	return cfg, nil
}

func buildPipeline(ctx context.Context, c *cli.Command, channel, videoNo string) (*tts.Pipeline, error) {
	engCfg, err := resolveEngineConfig(c, channel, videoNo)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx, engCfg)
	if err != nil {
		return nil, err
	}
	if !eng.IsAvailable(ctx) {
		return nil, fmt.Errorf("engine '%s' is not reachable", eng.Name())
	}

	var annotator tts.Annotator
	if !c.Bool("no-llm") {
		client, err := llm.NewClient(llm.Config{
			Provider: c.String("llm-provider"),
			Model:    c.String("llm-model"),
		})
		if err != nil {
			return nil, err
		}
		annotator = client
	}

	cfg := tts.DefaultConfig()
	cfg.StripMarkdown = !c.Bool("keep-markdown")
	cfg.StrictControlChars = c.Bool("strict")
	if maxChunk := int(c.Int("max-chunk")); maxChunk > 0 {
		cfg.MaxChunkLen = maxChunk
	}

	return tts.NewPipeline(cfg, eng, annotator)
}
