package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/buzzauk/sixarm/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sixarm",
	Short: "Sixarm is a controller for a six-axis actuator rig",
	Long: `Sixarm drives a six-channel servo rig from analog pots, a four-button
panel and a remote JSON API. Poses can be recorded into a persistent step
bank and played back step by step, once through, or in a loop.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration file")
}

// loadConfig reads the configured YAML file, or returns the defaults
// when no file was given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
