package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/daideguchi/yomiage/internal/tts"
)

func handleTokenize(ctx context.Context, c *cli.Command) error {
	scriptPath := c.Args().Get(0)
	if scriptPath == "" {
		return fmt.Errorf("script path is required")
	}

	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	text, meta := tts.Preprocess(string(data), tts.PreprocessOptions{
		StripMarkdown: !c.Bool("keep-markdown"),
	})

	tokenizer, err := tts.NewTokenizer()
	if err != nil {
		return err
	}
	tokens, err := tokenizer.Tokenize(text)
	if err != nil {
		return err
	}

	for _, tok := range tokens {
		fmt.Printf("%4d  [%3d,%3d)  %-12s  %-12s  %s\n",
			tok.Index, tok.CharStart, tok.CharEnd, tok.Surface, tok.ReadingMecab, tok.POS)
	}
	if len(meta.SilenceTags) > 0 {
		fmt.Printf("\nSilence directives: %d\n", len(meta.SilenceTags))
	}
	for _, cc := range meta.ControlChars {
		fmt.Printf("Control character %s at position %d\n", cc.CodePoint, cc.Position)
	}
	return nil
}
