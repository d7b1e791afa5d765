package client

import (
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dogstory-api/internal/handlers/game/v1alpha1"
)

var (
	userName  string
	joinMapID string
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a map and get a player token",
	Long:  `Adds a dog to the map and prints the token to pass as --token to other commands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, v1alpha1.GameServiceJoinMethod, map[string]any{
			"userName": userName,
			"mapId":    joinMapID,
		}, false)
	},
}

func init() {
	joinCmd.Flags().StringVar(&userName, "name", "", "Dog name (required)")
	joinCmd.Flags().StringVar(&joinMapID, "map-id", "", "Map ID (required)")
	_ = joinCmd.MarkFlagRequired("name")   // nolint:errcheck // safe to ignore in init
	_ = joinCmd.MarkFlagRequired("map-id") // nolint:errcheck // safe to ignore in init
}
