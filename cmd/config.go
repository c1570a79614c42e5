// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/link"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or write the link configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective link configuration",
	Long: `Print the configuration the engine would run with: the defaults, then
the --config file if given, then any link flags.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the effective link configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	addLinkFlags(configShowCmd)
	addLinkFlags(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadLinkConfig(cmd)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadLinkConfig(cmd)
	if err != nil {
		return err
	}
	if err := link.SaveConfig(cfg, args[0]); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", args[0])
	return nil
}
