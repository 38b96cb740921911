package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/buzzauk/sixarm/internal/logging"
	"github.com/buzzauk/sixarm/internal/store"
	"github.com/buzzauk/sixarm/pkg/domain"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Inspect a stored step bank without running the rig",
	Long: `Opens the configured storage backend read-only-in-spirit (the boot
validation still repairs a corrupt count) and prints the recorded steps.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		blob, err := openBlob(cfg)
		if err != nil {
			fmt.Printf("Error opening storage: %v\n", err)
			os.Exit(1)
		}
		defer blob.Close()

		st, err := store.Open(context.Background(), blob, cfg.PulseRange(), logging.NewNop())
		if err != nil {
			fmt.Printf("Error opening step bank: %v\n", err)
			os.Exit(1)
		}

		steps := st.All()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			out, err := json.MarshalIndent(steps, "", "  ")
			if err != nil {
				fmt.Printf("Error encoding steps: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(out))
			return
		}

		fmt.Printf("%d of %d steps recorded\n", len(steps), store.Capacity)
		for i, p := range steps {
			fmt.Printf("%3d:", i)
			for ch, v := range p {
				fmt.Printf(" %s=%d", domain.ChannelNames[ch], v)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	stepsCmd.Flags().Bool("json", false, "Print the steps as JSON")
}
