package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seattleguide/seattleguide/internal/handler"
	"github.com/seattleguide/seattleguide/internal/server"
	"github.com/seattleguide/seattleguide/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool schemas offered to the model as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		maps, err := server.NewMapsService(cfg)
		if err != nil {
			return err
		}
		corpus, err := server.NewCorpus(cfg)
		if err != nil {
			return err
		}
		reg, err := tools.NewRegistry(tools.ConfigFrom(cfg), tools.Services{Maps: maps, Corpus: corpus}, tools.AllNames()...)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(handler.ToolInfos(reg), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
