package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trade-anomaly-alerts/internal/app"
)

var (
	detectFrom    string
	detectTo      string
	detectModel   string
	detectPersist bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run a batch detection pass over stored trades",
	RunE: func(cmd *cobra.Command, args []string) error {
		if detectFrom == "" || detectTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(time.RFC3339, detectFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(time.RFC3339, detectTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		opts := app.DetectOptions{
			From:      from,
			To:        to,
			ModelPath: detectModel,
			Persist:   detectPersist,
		}

		return getApp().Detect(cmd.Context(), opts)
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	detectCmd.Flags().StringVar(&detectTo, "to", "", "End timestamp (RFC3339, exclusive)")
	detectCmd.Flags().StringVar(&detectModel, "model", "", "Model path (defaults to config)")
	detectCmd.Flags().BoolVar(&detectPersist, "persist", false, "Write detected patterns to the audit table")
}
