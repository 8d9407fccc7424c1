package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	storagePath string
	backendName string
	apiURL      string
	configPath  string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "synapse",
	Short: "Chat with hosted and local AI models from the terminal",
	Long: `A terminal client for the Synapse multi-provider chat service.

Conversations are kept locally per device, or per account once you sign in,
and mirrored from the service when you are signed in.

Features:
  • Interactive chat with progressive reply display
  • Conversation history: list, show, resume, delete, export
  • Free guest requests, account login and plan upgrades
  • A local API server proxying to Ollama or any OpenAI-compatible runtime

Quick Start:
  synapse chat                           # Resume your latest conversation
  synapse ask "What is a goroutine?"     # One-shot question
  synapse list                           # List conversations
  synapse export --format md             # Export as Markdown`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Custom storage location (path to database file)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Storage backend (sqlite, bolt, memory)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Chat service base URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.synapse/config.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
