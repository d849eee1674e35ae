// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-triage CLI.
// It fetches SSRN notification emails, extracts paper records, and moves
// papers through the editorial workflow
// new -> declined | optioned -> solicited -> accepted | declined.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-triage/internal/secrets"
	"github.com/pdiddy/paper-triage/internal/solicit"
	"github.com/pdiddy/paper-triage/internal/store"
	"github.com/pdiddy/paper-triage/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paper-triage CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-triage",
	Short: "Triage SSRN paper notifications for an editorial board",
	Long: `paper-triage reads SSRN eJournal notification emails, extracts the
papers they announce (title, authors, affiliations, journal) and tracks each
paper through the editorial workflow:

  new -> declined | optioned -> solicited -> accepted | declined

Papers that were already declined, optioned, solicited or accepted never
resurface as new. Run "fetch" to pull new papers, "list" to review them,
and "decline", "option", "solicit" or "accept" to move them along.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose || viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-triage.yaml or ~/.config/paper-triage/paper-triage.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding triage.db (default: data)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of credential files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	_ = viper.BindPFlag("store.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-triage")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-triage"))
		}
	}

	setDefaults()

	viper.SetEnvPrefix("PAPER_TRIAGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so env overrides and Unmarshal
// see them even without a config file.
func setDefaults() {
	mail := types.DefaultMailConfig()
	viper.SetDefault("mail.source", mail.Source)
	viper.SetDefault("mail.host", "")
	viper.SetDefault("mail.username", "")
	viper.SetDefault("mail.password", "")
	viper.SetDefault("mail.mailbox", mail.Mailbox)
	viper.SetDefault("mail.from", "")
	viper.SetDefault("mail.since_days", mail.SinceDays)
	viper.SetDefault("mail.dir", "")
	viper.SetDefault("mail.timeout", mail.Timeout)

	parse := types.DefaultParseConfig()
	viper.SetDefault("parse.affiliation_keywords", parse.AffiliationKeywords)
	viper.SetDefault("parse.topic_tags", parse.TopicTags)
	viper.SetDefault("parse.min_name_tokens", parse.MinNameTokens)
	viper.SetDefault("parse.max_name_tokens", parse.MaxNameTokens)
	viper.SetDefault("parse.final_name_tokens", parse.FinalNameTokens)
	viper.SetDefault("parse.final_name_tokens_with_initial", parse.FinalNameTokensWithInitial)

	viper.SetDefault("store.data_dir", "data")
	viper.SetDefault("schedule.cron", "")
	viper.SetDefault("schedule.timezone", "UTC")
	viper.SetDefault("solicitable_authors", "solicitable_authors.csv")
	viper.SetDefault("workers", 4)
}

// triageConfig decodes the merged configuration and fills credentials from
// loaded secrets.
func triageConfig() (types.TriageConfig, error) {
	var cfg types.TriageConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	secrets.ApplyMail(&cfg.Mail, loadedSecrets)
	cfg.Parse = cfg.Parse.WithDefaults()
	return cfg, nil
}

func openStore(cfg types.TriageConfig) (*store.Store, error) {
	return store.Open(cfg.Store)
}

func loadSolicitable(cfg types.TriageConfig) *solicit.Set {
	set, err := solicit.Load(cfg.SolicitableAuthors)
	if err != nil {
		slog.Warn("solicitable authors not loaded", "path", cfg.SolicitableAuthors, "err", err)
		return solicit.NewSet()
	}
	slog.Debug("solicitable authors loaded", "count", set.Len())
	return set
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
