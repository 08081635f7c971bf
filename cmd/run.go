package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daideguchi/yomiage/internal/tts"
)

func handleRun(ctx context.Context, c *cli.Command) error {
	scriptPath := c.Args().Get(0)
	if scriptPath == "" {
		return fmt.Errorf("script path is required")
	}

	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	channel := c.String("channel")
	videoNo := c.String("video")
	scriptID := scriptIDFromPath(scriptPath)

	pipeline, err := buildPipeline(ctx, c, channel, videoNo)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, tts.RunRequest{
		Channel:  channel,
		VideoNo:  videoNo,
		ScriptID: scriptID,
		AText:    string(data),
		OutDir:   outDirFor(c.String("out"), channel, videoNo, scriptID),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Audio:     %s (%.1fs)\n", result.WavPath, result.DurationSec)
	fmt.Printf("Subtitles: %s\n", result.SRTPath)
	fmt.Printf("Log:       %s\n", result.LogPath)
	return nil
}

func handleBatch(ctx context.Context, c *cli.Command) error {
	dir := c.Args().Get(0)
	if dir == "" {
		return fmt.Errorf("scripts directory is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read scripts directory: %w", err)
	}

	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		scripts = append(scripts, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(scripts)
	if len(scripts) == 0 {
		return fmt.Errorf("no .txt scripts found in %s", dir)
	}

	channel := c.String("channel")
	outRoot := c.String("out")

	var failed []string
	for _, scriptPath := range scripts {
		scriptID := scriptIDFromPath(scriptPath)
		videoNo := c.String("video")
		if videoNo == "" {
			videoNo = scriptID
		}

		log.Info().Str("script", scriptID).Msg("Processing script")

		// A routing table may point different videos at different
		// engines, so the pipeline is rebuilt per script.
		pipeline, err := buildPipeline(ctx, c, channel, videoNo)
		if err != nil {
			log.Error().Err(err).Str("script", scriptID).Msg("Script failed")
			failed = append(failed, scriptID)
			continue
		}

		data, err := os.ReadFile(scriptPath)
		if err != nil {
			log.Error().Err(err).Str("script", scriptID).Msg("Script failed")
			failed = append(failed, scriptID)
			continue
		}

		result, err := pipeline.Run(ctx, tts.RunRequest{
			Channel:  channel,
			VideoNo:  videoNo,
			ScriptID: scriptID,
			AText:    string(data),
			OutDir:   outDirFor(outRoot, channel, videoNo, scriptID),
		})
		if err != nil {
			log.Error().Err(err).Str("script", scriptID).Msg("Script failed")
			failed = append(failed, scriptID)
			continue
		}

		fmt.Printf("%s: %s (%.1fs)\n", scriptID, result.WavPath, result.DurationSec)
	}

	fmt.Printf("\nProcessed %d scripts, %d failed\n", len(scripts), len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("failed scripts: %s", strings.Join(failed, ", "))
	}
	return nil
}

func scriptIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outDirFor places artifacts under a per-(channel, video) directory when
// both are known, so concurrent jobs never share an output directory.
func outDirFor(root, channel, videoNo, scriptID string) string {
	if channel != "" && videoNo != "" {
		return filepath.Join(root, channel, videoNo)
	}
	return filepath.Join(root, scriptID)
}
