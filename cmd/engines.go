package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/daideguchi/yomiage/internal/engine"
)

func handleEngines(ctx context.Context, c *cli.Command) error {
	cfg, err := resolveEngineConfig(c, c.String("channel"), c.String("video"))
	if err != nil {
		return err
	}

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return err
	}

	if !eng.IsAvailable(ctx) {
		fmt.Printf("%s: unavailable\n", eng.Name())
		return fmt.Errorf("engine '%s' is not reachable", eng.Name())
	}
	fmt.Printf("%s: available\n", eng.Name())

	vv, ok := eng.(*engine.Voicevox)
	if !ok {
		return nil
	}

	speakers, err := vv.ListSpeakers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list speakers: %w", err)
	}

	fmt.Println("\nSpeakers:")
	for _, sp := range speakers {
		for _, style := range sp.Styles {
			fmt.Printf("  %6d  %s (%s)\n", style.ID, sp.Name, style.Name)
		}
	}
	return nil
}
