package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "Turn a story into an extended video timeline on labs.google",
	Long: `storyboard drives the labs.google video tool: it generates scene prompts
from a story, then runs them one by one, extending the timeline with each
scene and downloading the result.

Run "storyboard serve" next to the browser and "storyboard console" to
compose and submit storyboards.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, consoleCmd, promptsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
