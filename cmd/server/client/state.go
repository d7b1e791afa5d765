package client

import (
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dogstory-api/internal/handlers/game/v1alpha1"
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the players on the token's map",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, v1alpha1.GameServiceListPlayersMethod, nil, true)
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show dogs and lost objects on the token's map",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, v1alpha1.GameServiceGetStateMethod, nil, true)
	},
}

var move string

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Steer the token's dog",
	Long:  `Sets the dog's direction: L, R, U or D. An empty move stops the dog.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, v1alpha1.GameServiceMoveMethod, map[string]any{"move": move}, true)
	},
}

func init() {
	moveCmd.Flags().StringVar(&move, "move", "", "Direction: L, R, U, D or empty to stop")
}
