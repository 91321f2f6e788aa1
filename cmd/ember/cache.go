package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/driver"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the compile cache",
}

var cacheDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Remove every cached unit summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := driver.OpenDiskCache("ember")
		if err != nil {
			return err
		}
		if err := cache.DropAll(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "compile cache dropped")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheDropCmd)
}
