// Package client provides commands that exercise a running game server
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/KirkDiggler/dogstory-api/internal/handlers/game/v1alpha1"
)

var (
	// Connection flags
	serverAddr string
	timeout    time.Duration
	authToken  string

	// extra dial options, used by tests to dial an in-process server
	dialOptions []grpc.DialOption
)

// ClientCmd is the root command for all client commands
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for the game server",
	Long:  `Client commands call a running game server and print the JSON responses.`,
}

func init() {
	ClientCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:50051", "gRPC server address")
	ClientCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	ClientCmd.PersistentFlags().StringVar(&authToken, "token", "", "Player token returned by join")

	ClientCmd.AddCommand(mapsCmd)
	ClientCmd.AddCommand(mapCmd)
	ClientCmd.AddCommand(joinCmd)
	ClientCmd.AddCommand(playersCmd)
	ClientCmd.AddCommand(stateCmd)
	ClientCmd.AddCommand(moveCmd)
	ClientCmd.AddCommand(tickCmd)
	ClientCmd.AddCommand(recordsCmd)
}

// call sends req to method and prints the response as JSON
func call(cmd *cobra.Command, method string, req map[string]any, withToken bool) error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, dialOptions...)
	conn, err := grpc.NewClient(serverAddr, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer func() {
		_ = conn.Close() // nolint:errcheck // safe to ignore in cleanup
	}()

	body, err := structpb.NewStruct(req)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if withToken {
		if authToken == "" {
			return fmt.Errorf("--token is required")
		}
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+authToken)
	}

	resp, err := v1alpha1.NewGameServiceClient(conn).Call(ctx, method, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
