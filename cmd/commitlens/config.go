package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CommitLens configuration",
	Long:  `View and write CommitLens configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current configuration to ~/.commitlens/config.yaml",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if jsonOutput {
		return printJSON(cfg)
	}

	out, err := cfg.Dump()
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	path := filepath.Join(homeDir, ".commitlens", "config.yaml")
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Printf("✅ Configuration written to %s\n", path)
	return nil
}
