package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/friendlyi/reservation-backend/internal/config"
	"github.com/friendlyi/reservation-backend/internal/database"
	"github.com/friendlyi/reservation-backend/internal/handler"
	"github.com/friendlyi/reservation-backend/internal/queue"
	"github.com/friendlyi/reservation-backend/internal/repository"
	"github.com/friendlyi/reservation-backend/internal/router"
	"github.com/friendlyi/reservation-backend/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.Env == "prod" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, caching and rate limiting disabled")
	}

	members := repository.NewMemberRepo(db)
	locations := repository.NewLocationRepo(db)
	reservations := repository.NewReservationRepo(db)
	applications := repository.NewApplicationRepo(db)
	activityLogs := repository.NewActivityLogRepo(db)
	tokens := repository.NewTokenRepo(db)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Seed(seedCtx, cfg, members, locations); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}
	cancelSeed()

	activity := service.NewActivityLogger(activityLogs)
	defer activity.Close()

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		events = service.NewAMQPPublisher(cfg.AMQPURL)
		go queue.StartApplicationConsumer(cfg.AMQPURL)
	} else {
		log.Warn("RABBITMQ_URL unset, application.confirmed events disabled")
	}

	engineStore := service.NewMySQLEngineStore(db, members, reservations, applications)
	engine := service.NewApplicationEngine(engineStore, activity, events)

	memberSvc := service.NewMemberService(members, applications, rdb, cfg.BcryptCost, activity)
	locationSvc := service.NewLocationService(locations, activity)
	reservationSvc := service.NewReservationService(db, members, locations, reservations, applications, engine, activity)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, rdb, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, memberSvc, tokens, activity),
		Members:      handler.NewMemberHandler(memberSvc),
		Locations:    handler.NewLocationHandler(locationSvc),
		Reservations: handler.NewReservationHandler(reservationSvc),
		Applications: handler.NewApplicationHandler(engine, applications, members, reservations),
		ActivityLogs: handler.NewActivityLogHandler(activity),
		Files:        handler.NewFileHandler(memberSvc, cfg.UploadDir),
	})

	go func() {
		addr := ":" + cfg.Port
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
