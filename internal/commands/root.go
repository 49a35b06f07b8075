// Package commands implements the smart-finance command line.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/smart-finance/internal/advisor"
	"gitlab.com/yelinaung/smart-finance/internal/config"
	"gitlab.com/yelinaung/smart-finance/internal/extraction"
)

// Build metadata, set with -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// cliSession is the in-flight guard key for commands run from a terminal.
const cliSession = "cli"

// AIClient is the Gemini surface used by extraction and advice.
type AIClient interface {
	extraction.Parser
	advisor.Generator
}

// deps holds the constructors commands use to reach the outside world.
type deps struct {
	loadConfig func() (*config.Config, error)
	newAI      func(ctx context.Context, cfg *config.Config) (AIClient, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		newAI:      newGeminiClient,
	}
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(d deps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "smart-finance",
		Short:   "AI-assisted personal expense tracker",
		Version: versionString(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(d),
		newBotCommand(d),
		newAddCommand(d),
		newImportCommand(d),
		newListCommand(d),
		newDeleteCommand(d),
		newTotalCommand(d),
		newAdviceCommand(d),
		newVersionCommand(),
	)

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "smart-finance %s\n", versionString())
		},
	}
}
