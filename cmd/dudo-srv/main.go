package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"

	"github.com/dudo-games/dudo/internal/cache/cachelru"
	"github.com/dudo-games/dudo/internal/database"
	stateDb "github.com/dudo-games/dudo/internal/database/gamestate/database"
	statDb "github.com/dudo-games/dudo/internal/database/stat/database"
	"github.com/dudo-games/dudo/internal/dudosrv"
	"github.com/dudo-games/dudo/internal/gateway/mqttgw"
	"github.com/dudo-games/dudo/internal/logging"
	"github.com/dudo-games/dudo/internal/server"
	"github.com/dudo-games/dudo/internal/shutdown"
)

func main() {
	ctx, done := shutdown.New()
	defer done()

	config := dudosrv.Config{}
	if err := envconfig.Process("", &config); err != nil {
		logging.DefaultLogger().Fatalf("processing the config: %v", err)
	}

	logger := logging.NewLogger(config.Debug)
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, config); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, config dudosrv.Config) error {
	logger := logging.FromContext(ctx).Named("main.realMain")

	db, err := database.NewFromEnv(ctx, &config.DB)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}
	defer db.Close(ctx)

	statCache, err := cachelru.NewLRU(config.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	srv, err := server.New(config.Port)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/health", server.HandleHealth(ctx))

	var engine *dudosrv.Engine
	gw := mqttgw.New(mqttgw.Config{
		BrokerURL: config.BrokerURL,
		ClientID:  config.ClientID,
		TopicRoot: config.TopicRoot,
	}, func(ctx context.Context, cmd dudosrv.Command) error {
		return engine.Handle(ctx, cmd)
	})

	engine = dudosrv.NewEngine(&config, gw, stateDb.New(db), statDb.New(db, statCache))

	if err := gw.Connect(ctx); err != nil {
		return fmt.Errorf("gateway connect: %w", err)
	}
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("engine load: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := srv.ServeHTTP(ctx, &http.Server{Handler: mux}); err != nil {
			return fmt.Errorf("srv.ServeHTTP: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return gw.Run(ctx)
	})

	group.Go(func() error {
		ticker := time.NewTicker(config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				if err := engine.Sweep(ctx, now); err != nil {
					logger.Errorf("sweep: %v", err)
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		return err
	}
	return engine.Shutdown(context.Background())
}
