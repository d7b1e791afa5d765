package client

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dogstory-api/internal/handlers/game/v1alpha1"
)

var (
	tickDelta time.Duration
	start     int
	maxItems  int
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Advance the game clock",
	Long:  `Only works when the server runs without --tick-period.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, v1alpha1.GameServiceTickMethod, map[string]any{
			"timeDelta": tickDelta.Milliseconds(),
		}, false)
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Show the retired players leaderboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := map[string]any{"start": start}
		if maxItems > 0 {
			req["maxItems"] = maxItems
		}
		return call(cmd, v1alpha1.GameServiceRecordsMethod, req, false)
	},
}

func init() {
	tickCmd.Flags().DurationVar(&tickDelta, "delta", time.Second, "Game time to advance")
	recordsCmd.Flags().IntVar(&start, "start", 0, "Offset of the first record")
	recordsCmd.Flags().IntVar(&maxItems, "max-items", 0, "Number of records, at most 100")
}
