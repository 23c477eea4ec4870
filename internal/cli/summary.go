package cli

import (
	"github.com/spf13/cobra"

	"startup-revenue-alerts/internal/app"
)

var summaryDays int

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Report recent tracker activity and deliver it to alert channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Summary(cmd.Context(), app.SummaryOptions{Days: summaryDays})
	},
}

func init() {
	summaryCmd.Flags().IntVar(&summaryDays, "days", 7, "Reporting window in days")
}
