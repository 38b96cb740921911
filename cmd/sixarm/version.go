package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buzzauk/sixarm"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sixarm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sixarm version %s\n", sixarm.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
