package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tb-storyboard/internal/bootstrap"
	"tb-storyboard/internal/ports"
	"tb-storyboard/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Launch the browser and accept storyboard requests on the relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := bootstrap.NewEngineApp()
		app.Run()

		return app.Err()
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Compose storyboards interactively and send them to the engine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app := bootstrap.NewConsoleApp()
		app.Run()

		return app.Err()
	},
}

var (
	promptScenes  int
	promptStyle   string
	promptTimeout time.Duration
)

var promptsCmd = &cobra.Command{
	Use:   "prompts <story>",
	Short: "Print scene prompts for a story without touching the browser",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPrompts,
}

func init() {
	promptsCmd.Flags().IntVarP(&promptScenes, "scenes", "n", 3, "number of scenes")
	promptsCmd.Flags().StringVarP(&promptStyle, "style", "s", "cinematic", "visual style")
	promptsCmd.Flags().DurationVar(&promptTimeout, "timeout", time.Minute, "upstream call timeout")
}

func runPrompts(cmd *cobra.Command, args []string) error {
	var (
		generator ports.PromptGenerator
		logger    *zap.Logger
	)

	app := bootstrap.NewPromptsApp(&generator, &logger)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), promptTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(context.Background())
	}()

	svc := usecase.NewPromptService(usecase.PromptServiceParams{Generator: generator, Logger: logger})

	prompts, err := svc.Generate(ctx, strings.Join(args, " "), promptScenes, promptStyle)
	if err != nil {
		return err
	}

	for i, p := range prompts {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, p)
	}

	return nil
}
