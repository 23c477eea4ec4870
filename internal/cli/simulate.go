package cli

import (
	"github.com/spf13/cobra"

	"startup-revenue-alerts/internal/app"
)

var (
	simulateCompany string
	simulateAmount  float64
	simulateKind    string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic alert through the configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Company:        simulateCompany,
			AmountMillions: simulateAmount,
			Kind:           simulateKind,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCompany, "company", "ExampleCorp", "Company name for the synthetic alert")
	simulateCmd.Flags().Float64Var(&simulateAmount, "amount", 75.0, "Amount in millions of dollars")
	simulateCmd.Flags().StringVar(&simulateKind, "kind", "revenue", "Figure kind (revenue, arr, bookings, sales)")
}
