package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/micaja/api/internal/config"
	"github.com/micaja/api/internal/database"
	"github.com/micaja/api/internal/kitchen"
	"github.com/micaja/api/internal/logger"
	"github.com/micaja/api/internal/order"
	"github.com/micaja/api/internal/router"
	"github.com/micaja/api/internal/session"
	"github.com/micaja/api/internal/syncclient"
	"github.com/micaja/api/internal/ws"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().Msg("connected to database")

	store := database.NewStore(pool)

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	var kitchenQueue order.KitchenQueue = store
	if cfg.AMQPURL != "" {
		mq, err := startKitchenBroker(ctx, cfg, store, log)
		if err != nil {
			log.Fatal().Err(err).Msg("start kitchen broker")
		}
		defer mq.client.Close()
		kitchenQueue = kitchen.NewFanout(store, log, mq.publisher)
	}

	sessions := session.NewManager(session.Options{
		Store:           store,
		Kitchen:         kitchenQueue,
		Cache:           syncclient.NewFileCache(cfg.CacheDir),
		Hub:             hub,
		WritePolicy:     cfg.WritePolicy,
		SettlementGuard: cfg.SettlementGuard,
		Location:        cfg.Location(),
		CommentDebounce: cfg.CommentDebounce,
		PersistTimeout:  cfg.PersistTimeout,
		SyncDebounce:    cfg.SyncDebounce,
		Logger:          log,
	})
	defer sessions.Close()

	go func() {
		if err := sessions.Run(ctx, database.NewListener(pool, log)); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("change feed stopped")
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, sessions, hub, pool, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).
			Str("write_policy", cfg.WritePolicy).
			Str("settlement_guard", cfg.SettlementGuard).
			Str("timezone", cfg.BusinessTimezone).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

type kitchenBroker struct {
	client    *kitchen.Client
	publisher *kitchen.Publisher
}

// startKitchenBroker mirrors dispatches to the AMQP exchange and consumes
// the kitchen's done notifications.
func startKitchenBroker(ctx context.Context, cfg *config.Config, store *database.Store, log zerolog.Logger) (*kitchenBroker, error) {
	client, err := kitchen.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, err
	}
	if err := client.DeclareTopology(cfg.KitchenExchange, cfg.KitchenDoneQueue); err != nil {
		client.Close()
		return nil, err
	}
	deliveries, err := client.Consume(cfg.KitchenDoneQueue, "micaja-api", 10)
	if err != nil {
		client.Close()
		return nil, err
	}

	consumer := kitchen.NewConsumer(store, log)
	go func() {
		if err := consumer.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("kitchen consumer stopped")
		}
	}()

	log.Info().Str("exchange", cfg.KitchenExchange).Str("done_queue", cfg.KitchenDoneQueue).Msg("kitchen broker connected")
	return &kitchenBroker{
		client:    client,
		publisher: kitchen.NewPublisher(client.Channel(), cfg.KitchenExchange),
	}, nil
}
