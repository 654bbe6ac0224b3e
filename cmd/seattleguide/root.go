package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seattleguide/seattleguide/internal/config"
	"github.com/seattleguide/seattleguide/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "seattleguide",
	Short: "Seattle visitor chat assistant",
	Long:  `seattleguide answers visitor questions about Seattle, looking up places, addresses, directions and local articles when a question needs them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel, cfg.Server.Environment)
		return nil
	},
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultPort, "server port")
	rootCmd.PersistentFlags().String("model.provider", config.DefaultModelProvider, "conversational model provider (anthropic, openai)")
	rootCmd.PersistentFlags().String("corpus.backend", config.DefaultCorpusBackend, "corpus backend (remote, elasticsearch, local)")
}
