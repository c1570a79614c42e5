// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/Thermoquad/parhelion/pkg/nvstore"
	"github.com/spf13/cobra"
)

var bindCmd = &cobra.Command{
	Use:   "bind",
	Short: "Inspect or erase the stored bind record",
	Long: `The receiver stores the transmitter it last bound to, with its hop table,
in the bind record file (--store). At startup it resumes hopping from that
record instead of listening on the bind channel.`,
}

var bindShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored bind record",
	RunE:  runBindShow,
}

var bindClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase the stored bind record so the next start binds afresh",
	RunE:  runBindClear,
}

func init() {
	rootCmd.AddCommand(bindCmd)
	bindCmd.AddCommand(bindShowCmd)
	bindCmd.AddCommand(bindClearCmd)
}

func runBindShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	fmt.Printf("Bind record: %s\n", store.Path())
	rec, err := store.Load()
	if errors.Is(err, nvstore.ErrNoRecord) {
		fmt.Printf("No transmitter bound\n")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Transmitter: %s\n", rec.ID)
	fmt.Printf("Hop table:   %s\n", rec.Hops)
	if rec.Hops == hop.Derive(rec.ID) {
		fmt.Printf("             (derived from the transmitter id)\n")
	}
	return nil
}

func runBindClear(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Erase(); err != nil {
		return err
	}
	fmt.Printf("Erased bind record %s\n", store.Path())
	return nil
}
