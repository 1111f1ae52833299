// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pubmed-engine CLI.
// Subcommands search PubMed, fetch records by PMID, parse saved efetch XML,
// manage the local record library, and serve the HTTP API.
package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-engine/internal/observability"
	"github.com/pdiddy/pubmed-engine/internal/secrets"
	"github.com/pdiddy/pubmed-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Set by the root command before any subcommand runs.
var (
	cfg    types.Config
	logger zerolog.Logger
)

// rootCmd is the base command for the pubmed-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "pubmed-engine",
	Short: "Search PubMed and extract citation records",
	Long: `pubmed-engine queries the NCBI E-utilities for PubMed citations and
streams efetch XML into compact records: PMID, title, abstract, authors,
references, and a PubMed link.

Records can be printed as JSON, YAML, CSL-YAML, or a table, saved to a
local SQLite library, or served over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded
		logger = observability.NewLogger(cfg.Logging)

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		secrets.Apply(&cfg.Eutils, s)
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug().Str("path", used).Msg("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pubmed-engine.yaml or ~/.config/pubmed-engine/pubmed-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")
	rootCmd.PersistentFlags().String("library-dir", "library", "directory holding the record library")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("library.dir", rootCmd.PersistentFlags().Lookup("library-dir"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubmed-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pubmed-engine"))
		}
	}

	setupViper(viper.GetViper())
	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
