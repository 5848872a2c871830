// Package cli implements the inquisitor command tree.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chal0326/researchcms/internal/config"
	"github.com/chal0326/researchcms/internal/logger"
)

var (
	configPath string

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "inquisitor",
	Short:         "Extract a knowledge graph from research documents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := logger.New(cfg.Log.Mode)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		log = l
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	def := os.Getenv("CONFIG_PATH")
	if def == "" {
		def = "config/config.toml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", def, "path to the TOML config file")
}

// loadConfig reads path, falling back to environment and defaults when the
// file does not exist.
func loadConfig(path string) (*config.Config, error) {
	c, err := config.Load(path)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	c = &config.Config{}
	c.ApplyEnv()
	c.ApplyDefaults()
	return c, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
