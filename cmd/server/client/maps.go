package client

import (
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dogstory-api/internal/handlers/game/v1alpha1"
)

var mapID string

var mapsCmd = &cobra.Command{
	Use:   "maps",
	Short: "List the available maps",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, v1alpha1.GameServiceListMapsMethod, nil, false)
	},
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Show one map with its roads, buildings and offices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return call(cmd, v1alpha1.GameServiceGetMapMethod, map[string]any{"mapId": mapID}, false)
	},
}

func init() {
	mapCmd.Flags().StringVar(&mapID, "map-id", "", "Map ID (required)")
	_ = mapCmd.MarkFlagRequired("map-id") // nolint:errcheck // safe to ignore in init
}
