// Package cmd implements the chatrelay CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/config"
)

const version = "0.1.0"

var (
	rootConfigFile string
	rootToken      string
	rootTimeout    int
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "chatrelay — chat API orchestration from the command line",
	Long: "chatrelay relays a chat UI's orchestration calls: merged model\n" +
		"catalogs, structured task completions, and OpenAPI tool servers.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// A .env in the working directory may supply CHATRELAY_TOKEN.
		_ = godotenv.Load()
		if rootToken == "" {
			rootToken = os.Getenv("CHATRELAY_TOKEN")
		}
	},
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVar(&rootConfigFile, "config", "", "Config file (default ~/.chatrelay/config.json)")
	rootCmd.PersistentFlags().StringVar(&rootToken, "token", "", "Backend API token (default $CHATRELAY_TOKEN)")
	rootCmd.PersistentFlags().IntVar(&rootTimeout, "timeout", 0, "HTTP timeout in seconds (overrides config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(toolCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig reads the config file honoring the --config override and folds
// the --timeout flag into the returned config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootConfigFile)
	if err != nil {
		return nil, err
	}
	if rootTimeout > 0 {
		cfg.Server.TimeoutSeconds = rootTimeout
	}
	return cfg, nil
}

// effectiveToken resolves the backend token: --token flag, then
// CHATRELAY_TOKEN, then the config file.
func effectiveToken(cfg *config.Config) string {
	if rootToken != "" {
		return rootToken
	}
	return cfg.Server.Token
}
