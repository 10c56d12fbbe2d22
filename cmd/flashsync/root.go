package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/justinlyon12/flashsync/internal/config"
)

var cfgFile string

// NewRootCmd builds the command tree, loading configuration through the
// given loader so tests can inject one without touching viper directly.
func NewRootCmd(loader ConfigLoader) *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:   "flashsync",
		Short: "A local-first flashcard study tool with spaced repetition",
		Long: `flashsync studies plain-text Q/A flashcards with spaced repetition
(SM-2 or FSRS), tracked in markdown files and synced across devices through
a flashsyncd server. Study works fully offline; sync reconciles local
reviews and deck edits with the server (or, with no server configured, a
local-only store on this machine).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			}
			loaded, err := loader.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flashsync/flashsync.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "log in JSON format")
	root.PersistentFlags().String("database-path", "", "local device database path")
	root.PersistentFlags().String("server-url", "", "flashsyncd server URL (empty runs a local-only store)")

	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_json", root.PersistentFlags().Lookup("log-json"))
	_ = viper.BindPFlag("database.path", root.PersistentFlags().Lookup("database-path"))
	_ = viper.BindPFlag("sync.server_url", root.PersistentFlags().Lookup("server-url"))

	getApp := func() (*App, error) {
		if cfg == nil {
			loaded, err := loader.Load()
			if err != nil {
				return nil, fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded
		}
		return NewApp(cfg)
	}

	root.AddCommand(NewRegisterCmd(getApp))
	root.AddCommand(NewStudyCmd(getApp))
	root.AddCommand(NewSyncCmd(getApp))
	root.AddCommand(NewDecksCmd(getApp))
	root.AddCommand(NewSettingsCmd(getApp))
	root.AddCommand(NewWatchCmd(getApp))

	return root
}
