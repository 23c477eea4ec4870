package cli

import (
	"github.com/spf13/cobra"

	"startup-revenue-alerts/internal/app"
)

var scanForce bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scrape cycle and print new alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context(), app.ScanOptions{Force: scanForce})
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "Re-analyze articles already recorded as seen")
}
