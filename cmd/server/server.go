package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	"github.com/KirkDiggler/dogstory-api/internal/engine/loot"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/handlers/game/v1alpha1"
	"github.com/KirkDiggler/dogstory-api/internal/orchestrators/gameplay"
)

// Environment variables that provide defaults for flags
const (
	envDBURL    = "GAME_DB_URL"
	envLogLevel = "GAME_LOG_LEVEL"
)

var (
	grpcPort        int
	configFile      string
	tickPeriod      time.Duration
	randomizeSpawn  bool
	randomSeed      uint64
	stateFile       string
	saveStatePeriod time.Duration
	redisAddr       string
	dbPoolSize      int
	logLevel        string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gRPC server",
	Long: `Start the Dog Story gRPC server.

Without --tick-period the game clock only advances through the Tick call.
The leaderboard is kept in memory unless --redis-addr (or GAME_DB_URL) is set.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().IntVar(&grpcPort, "port", 50051, "gRPC server port")
	serverCmd.Flags().StringVar(&configFile, "config-file", "configs/game.json", "Game configuration file")
	serverCmd.Flags().DurationVar(&tickPeriod, "tick-period", 0, "Automatic tick period, 0 to tick only through the API")
	serverCmd.Flags().BoolVar(&randomizeSpawn, "randomize-spawn-points", false, "Spawn dogs at random points on the roads")
	serverCmd.Flags().Uint64Var(&randomSeed, "random-seed", 0, "Seed for loot and spawn points, unset to roll real dice")
	serverCmd.Flags().StringVar(&stateFile, "state-file", "", "File to save game state to and restore it from")
	serverCmd.Flags().DurationVar(&saveStatePeriod, "save-state-period", 0, "Game time between automatic saves, 0 to save only on shutdown")
	serverCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the leaderboard (env "+envDBURL+")")
	serverCmd.Flags().IntVar(&dbPoolSize, "db-pool-size", 4, "Number of leaderboard database connections")
	serverCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error (env "+envLogLevel+")")
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}
	applyEnvDefaults(cmd)

	if err := setupLogging(logLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	cfg := &appConfig{
		ConfigFile:      configFile,
		RandomizeSpawn:  randomizeSpawn,
		StateFile:       stateFile,
		SaveStatePeriod: saveStatePeriod,
		RedisAddr:       redisAddr,
		DBPoolSize:      dbPoolSize,
	}
	if cmd.Flags().Changed("random-seed") {
		cfg.Random = loot.NewSeededSource(randomSeed)
		log.Printf("Using random seed %d", randomSeed)
	}

	application, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", grpcPort))
	if err != nil {
		application.close()
		return fmt.Errorf("failed to listen: %w", err)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.StreamServerInterceptor(),
		),
	)

	gameHandler, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{
		Service:    application.service,
		ManualTick: tickPeriod == 0,
	})
	if err != nil {
		application.close()
		return fmt.Errorf("failed to create game handler: %w", err)
	}

	v1alpha1.RegisterGameServiceServer(srv, gameHandler)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(v1alpha1.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(srv)

	var ticking sync.WaitGroup
	if tickPeriod > 0 {
		ticking.Add(1)
		go func() {
			defer ticking.Done()
			runTicker(ctx, application.service, tickPeriod)
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("gRPC server starting on port %d...", grpcPort)
		if err := srv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down gRPC server...")
		healthServer.Shutdown()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()

		select {
		case <-shutdownCtx.Done():
			log.Println("Graceful shutdown timeout exceeded, forcing stop")
			srv.Stop()
		case <-stopped:
			log.Println("Server stopped gracefully")
		}
	case serveErr = <-errChan:
		cancel()
	}

	ticking.Wait()

	saveCtx, saveCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer saveCancel()
	if err := application.shutdown(saveCtx); err != nil {
		if serveErr != nil {
			log.Printf("%v", err)
			return serveErr
		}
		return err
	}
	return serveErr
}

// runTicker advances the game by the wall time elapsed between ticks until
// ctx is done
func runTicker(ctx context.Context, service gameplay.Service, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if _, err := service.Tick(ctx, &gameplay.TickInput{Delta: delta}); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.ErrorContext(ctx, "tick failed", "delta", delta, "error", err)
			}
		}
	}
}

// applyEnvDefaults fills flags the user did not set from the environment
func applyEnvDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("redis-addr") {
		if v := os.Getenv(envDBURL); v != "" {
			redisAddr = v
		}
	}
	if !cmd.Flags().Changed("log-level") {
		if v := os.Getenv(envLogLevel); v != "" {
			logLevel = v
		}
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return errors.InvalidArgumentf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// logFunc bridges the middleware logger onto slog. The middleware levels
// share slog's numeric values.
func logFunc(ctx context.Context, level grpc_logging.Level, msg string, fields ...any) {
	slog.Log(ctx, slog.Level(level), msg, fields...)
}
