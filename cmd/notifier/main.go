package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	notifhandler "github.com/igronus/notify/internal/api/handlers/notification"
	"github.com/igronus/notify/internal/api/handlers/stream"
	"github.com/igronus/notify/internal/api/router"
	"github.com/igronus/notify/internal/api/server"
	"github.com/igronus/notify/internal/config"
	"github.com/igronus/notify/internal/delivery"
	"github.com/igronus/notify/internal/mongodb"
	"github.com/igronus/notify/internal/registry"
	notifrepo "github.com/igronus/notify/internal/repository/notification"
	notifsvc "github.com/igronus/notify/internal/service/notification"
	"github.com/igronus/notify/internal/stats"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	client, db, err := mongodb.Connect(ctx, cfg.Mongo, cfg.Retry)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	zlog.Logger.Info().Str("uri", cfg.Mongo.URI).Str("database", cfg.Mongo.Database).Msg("connected to mongo")

	repo := notifrepo.NewRepository(db)

	if err := repo.EnsureIndexes(ctx); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	dbNum, err := strconv.Atoi(cfg.Redis.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse redis database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, dbNum)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	reg := registry.New()
	st := stats.New()

	service := notifsvc.NewService(repo, rdb)
	notifHandler := notifhandler.NewHandler(service, val, cfg)
	streamHandler := stream.NewHandler(reg, cfg.WebSocket.Welcome)

	dispatcher := delivery.NewDispatcher(reg, service, st, cfg.Retry)
	poller := delivery.NewPoller(repo, reg, dispatcher, cfg.Poller.Interval, cfg.Poller.BatchLimit)

	go poller.Run(ctx)
	go st.Run(ctx, cfg.Stats.Interval)

	r := router.New(notifHandler, streamHandler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("server listening")

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// The poller and reporter have already stopped with ctx; drop every
	// remaining connection before the final report.
	reg.CloseAll()
	st.Log()

	if err := client.Disconnect(context.Background()); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to disconnect from mongo")
	}
}
