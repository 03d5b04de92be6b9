// Package cli implements the wcfm-archiver CLI commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/maauso/wcfm-archiver/internal/config"
)

var (
	configPath string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "wcfm-archiver",
	Short: "Epoch-aligned audio archiver",
	Long: "Records a live audio stream into fixed-length WAV segments aligned to the epoch grid, " +
		"overlapping each boundary by a padding window, discarding silent segments and keeping " +
		"a bounded number of archives.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default: $"+config.PathEnv+" or "+config.DefaultPath+")")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv(config.PathEnv); env != "" {
		return env
	}
	return config.DefaultPath
}

func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
