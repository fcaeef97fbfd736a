package cli

import (
	"github.com/spf13/cobra"

	"trade-anomaly-alerts/internal/app"
)

var (
	simulateCount   int
	simulateSeed    int64
	simulateAnomaly float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a synthetic trade stream through the detector",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Count:        simulateCount,
			Seed:         simulateSeed,
			AnomalyRatio: simulateAnomaly,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simulateCount, "count", 1000, "Number of synthetic trades")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 42, "Random seed for the synthetic stream")
	simulateCmd.Flags().Float64Var(&simulateAnomaly, "anomaly-ratio", 0.05, "Fraction of trades made anomalous")
}
