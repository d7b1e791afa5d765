package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/dogstory-api/internal/config"
	"github.com/KirkDiggler/dogstory-api/internal/engine/game"
	"github.com/KirkDiggler/dogstory-api/internal/engine/loot"
	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/orchestrators/gameplay"
	"github.com/KirkDiggler/dogstory-api/internal/pkg/connpool"
	"github.com/KirkDiggler/dogstory-api/internal/pkg/idgen"
	"github.com/KirkDiggler/dogstory-api/internal/redis"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/leaderboard"
	"github.com/KirkDiggler/dogstory-api/internal/repositories/snapshot"
	"github.com/KirkDiggler/dogstory-api/internal/services/players"
)

// appConfig is everything runServer collected from flags and the environment
type appConfig struct {
	ConfigFile      string
	RandomizeSpawn  bool
	StateFile       string
	SaveStatePeriod time.Duration
	RedisAddr       string
	DBPoolSize      int
	Random          loot.RandomSource
}

// app is the assembled game service plus the resources it owns
type app struct {
	service   gameplay.Service
	pool      *connpool.Pool[redis.Client]
	saveState bool
}

// buildApp loads the game config, opens the stores and restores the last
// snapshot when one exists
func buildApp(ctx context.Context, cfg *appConfig) (*app, error) {
	gameCfg, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	random := cfg.Random
	if random == nil {
		random = loot.NewDiceSource(dice.DefaultRoller)
	}

	registry, err := game.NewRegistry(&game.Config{
		Catalog:             gameCfg.Catalog,
		LootPeriod:          gameCfg.LootPeriod,
		LootProbability:     gameCfg.LootProbability,
		RetirementThreshold: gameCfg.RetirementThreshold,
		Random:              random,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create game registry")
	}

	playerRegistry, err := players.NewRegistry(&players.Config{
		Tokens: idgen.NewTokenGenerator(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create player registry")
	}

	a := &app{}

	var board leaderboard.Repository
	if cfg.RedisAddr != "" {
		a.pool, err = redis.NewPool(ctx, &redis.PoolConfig{
			Endpoint: cfg.RedisAddr,
			Size:     cfg.DBPoolSize,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to leaderboard database")
		}
		board, err = leaderboard.NewRedis(&leaderboard.RedisConfig{Pool: a.pool})
		if err != nil {
			a.close()
			return nil, err
		}
		log.Printf("Leaderboard stored in redis at %s (pool size %d)", cfg.RedisAddr, cfg.DBPoolSize)
	} else {
		board = leaderboard.NewInMemory()
		log.Println("Leaderboard kept in memory")
	}

	var store snapshot.Store
	if cfg.StateFile != "" {
		fileStore, err := snapshot.NewFileStore(&snapshot.FileConfig{Path: cfg.StateFile})
		if err != nil {
			a.close()
			return nil, err
		}
		store = fileStore
		a.saveState = true
	}

	bus := events.NewBus()
	subscribeLogging(bus)

	a.service, err = gameplay.NewOrchestrator(&gameplay.Config{
		Game:           registry,
		Players:        playerRegistry,
		Leaderboard:    board,
		Snapshots:      store,
		SavePeriod:     cfg.SaveStatePeriod,
		RandomizeSpawn: cfg.RandomizeSpawn,
		EventBus:       bus,
	})
	if err != nil {
		a.close()
		return nil, errors.Wrap(err, "failed to create gameplay orchestrator")
	}

	if a.saveState {
		if err := a.service.RestoreState(ctx); err != nil {
			switch {
			case errors.IsDataLoss(err):
				a.close()
				return nil, errors.Wrapf(err, "saved state in %s is unreadable, move it aside to start fresh", cfg.StateFile)
			case !errors.IsNotFound(err):
				a.close()
				return nil, errors.Wrap(err, "failed to restore saved state")
			}
			log.Printf("No saved state at %s, starting fresh", cfg.StateFile)
		} else {
			log.Printf("Restored state from %s", cfg.StateFile)
		}
	}

	return a, nil
}

// shutdown writes a last snapshot and releases the database pool
func (a *app) shutdown(ctx context.Context) error {
	defer a.close()
	if !a.saveState {
		return nil
	}
	if err := a.service.SaveState(ctx); err != nil {
		return errors.Wrap(err, "failed to save state on shutdown")
	}
	log.Println("State saved")
	return nil
}

func (a *app) close() {
	if a.pool == nil {
		return
	}
	if err := a.pool.Close(); err != nil {
		slog.Warn("failed to close leaderboard pool", "error", err)
	}
	a.pool = nil
}

// subscribeLogging logs the lifecycle events. Per-item loot events go to debug.
func subscribeLogging(bus events.EventBus) {
	lifecycle := func(ctx context.Context, e events.Event) error {
		attrs := []any{"event", e.Type()}
		if src := e.Source(); src != nil {
			attrs = append(attrs, "dog", src.GetID())
		}
		slog.InfoContext(ctx, "game event", attrs...)
		return nil
	}
	lootEvent := func(ctx context.Context, e events.Event) error {
		attrs := []any{"event", e.Type()}
		if src := e.Source(); src != nil {
			attrs = append(attrs, "dog", src.GetID())
		}
		if target := e.Target(); target != nil {
			attrs = append(attrs, "item", target.GetID())
		}
		slog.DebugContext(ctx, "game event", attrs...)
		return nil
	}

	bus.SubscribeFunc(gameplay.EventDogJoined, 100, lifecycle)
	bus.SubscribeFunc(gameplay.EventDogRetired, 100, lifecycle)
	bus.SubscribeFunc(gameplay.EventLootSpawned, 100, lootEvent)
	bus.SubscribeFunc(gameplay.EventLootCollected, 100, lootEvent)
	bus.SubscribeFunc(gameplay.EventLootDelivered, 100, lootEvent)
}
