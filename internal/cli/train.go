package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trade-anomaly-alerts/internal/app"
)

var (
	trainInput string
	trainFrom  string
	trainTo    string
	trainModel string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the anomaly model on historical trades",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.TrainOptions{
			InputCSV:  trainInput,
			ModelPath: trainModel,
		}

		if trainFrom != "" {
			from, err := time.Parse(time.RFC3339, trainFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if trainTo != "" {
			to, err := time.Parse(time.RFC3339, trainTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Train(cmd.Context(), opts)
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainInput, "input", "", "Path to a trades CSV file (optional label column)")
	trainCmd.Flags().StringVar(&trainFrom, "from", "", "Start timestamp (RFC3339, inclusive) when training from the database")
	trainCmd.Flags().StringVar(&trainTo, "to", "", "End timestamp (RFC3339, exclusive) when training from the database")
	trainCmd.Flags().StringVar(&trainModel, "model", "", "Output model path (defaults to config)")
}
