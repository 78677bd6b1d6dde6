package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/lock"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/router"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeLog()
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(parent context.Context, cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cluster, err := database.Connect(ctx, clusterConfig(cfg), retryPolicy(cfg), migrateFunc(cfg), log)
	if err != nil {
		return err
	}
	defer cluster.Close()

	// Redis is optional: without it rooms are locked in-process, and rate
	// limiting and caching are off.
	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.WithFields(logrus.Fields{"addr": cfg.Redis.Addr, "error": err.Error()}).Warn("redis unavailable, continuing without it")
		rdb = nil
	} else {
		defer rdb.Close()
	}
	var locker lock.Locker = lock.NewKeyedMutex()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, cfg.RoomLockTTL, log)
	}

	var events queue.Publisher = queue.Nop{}
	if cfg.EventsEnabled && cfg.RabbitURL != "" {
		events = queue.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsQueue, log)
	}

	bookings := repository.NewBookingRepo(cluster)
	rooms := repository.NewRoomRepo(cluster)
	admission := service.NewAdmission(bookings, locker, events, log)
	availability := service.NewAvailability(bookings, rooms)
	auth := service.NewAuth(repository.NewStaffRepo(cluster), cfg.JWTSecret, cfg.TokenTTL, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog(log))

	guards := router.Guards{JWTSecret: cfg.JWTSecret}
	if rdb != nil {
		guards.RateLimit = middleware.NewTokenBucket(cfg.RateLimit, rdb, log)
		guards.Cache = middleware.NewRedisCache(cfg.Cache, rdb)
	}
	router.RegisterRoutes(e, router.Handlers{
		Auth:     handler.NewAuthHandler(auth),
		Rooms:    handler.NewRoomHandler(rooms, repository.NewRoomTypeRepo(cluster), availability),
		Bookings: handler.NewBookingHandler(admission, bookings),
		Ready:    handler.Ready(cluster),
	}, guards)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	admission.Drain()
	if err := events.Close(); err != nil {
		log.WithError(err).Warn("event publisher close")
	}
	return nil
}
