package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/buildfast/internal/model"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "buildfast",
	Short:         "Plan projects and work through them with an AI assistant",
	Long:          `BuildFast serves the project planning API and talks to it from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to config file")
	rootCmd.Version = version
}

// loadConfig reads the file named by --config.
func loadConfig() (*model.AppConfig, error) {
	return model.LoadConfig(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
