package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

// rootCmd represents the base command for the gmail-ai-agent application
var rootCmd = &cobra.Command{
	Use:   "gmail-ai-agent",
	Short: "REST API for reading and analyzing a Gmail inbox with an LLM",
	Long: `gmail-ai-agent exposes a Gmail inbox over a REST API. Emails are cached,
indexed into a vector store and answered over by an LLM assistant: semantic
search, per-email analysis, reply drafting, insights and recommendations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmail-ai-agent version %s\n" .Version}}`)

	// If no subcommand is provided, run the API server by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadEnvFile loads variables from path into the environment. Variables
// already set win. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) && path == defaultEnvFile {
			return nil
		}
		return err
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}

const defaultEnvFile = ".env"

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "Environment file loaded before flags are resolved")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newVersionCmd())
}
