// Package main is the entry point for the dogstory-api server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/dogstory-api/cmd/server/client"
)

var rootCmd = &cobra.Command{
	Use:   "dogstory-api",
	Short: "Dog Story game server",
	Long:  `Dog Story API serves the dog collector game over gRPC.`,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(client.ClientCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
