package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stadium-ticket-reservation/internal/clock"
	"github.com/iliyamo/stadium-ticket-reservation/internal/config"
	"github.com/iliyamo/stadium-ticket-reservation/internal/database"
	"github.com/iliyamo/stadium-ticket-reservation/internal/handler"
	"github.com/iliyamo/stadium-ticket-reservation/internal/middleware"
	"github.com/iliyamo/stadium-ticket-reservation/internal/notify"
	"github.com/iliyamo/stadium-ticket-reservation/internal/queue"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
	"github.com/iliyamo/stadium-ticket-reservation/internal/router"
	"github.com/iliyamo/stadium-ticket-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	clk := clock.NewSystem()

	var (
		seats   repository.SeatStore
		tickets repository.TicketStore
		events  repository.EventStore
		users   *repository.UserRepo
		tokens  *repository.TokenRepo
	)
	switch cfg.StoreDriver {
	case "memory":
		// Single-node mode for development and demos; auth still needs
		// MySQL, so the auth endpoints are disabled.
		seats = repository.NewMemorySeatStore(clk)
		tickets = repository.NewMemoryTicketStore(clk)
		events = repository.NewMemoryEventStore(clk)
		log.Printf("store: in-memory (auth endpoints disabled)")
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer func() { _ = db.Close() }()
		seats = repository.NewSeatRepo(db)
		tickets = repository.NewTicketRepo(db)
		events = repository.NewEventRepo(db)
		users = repository.NewUserRepo(db)
		tokens = repository.NewTokenRepo(db)
	}

	hub := notify.NewHub()
	publisher := queue.NewPublisher()

	payments := &service.MockPaymentProcessor{}
	holdTTL := time.Duration(cfg.HoldTTLMin) * time.Minute
	ticketSvc := service.NewTicketService(seats, tickets, events, payments, hub, publisher, clk, holdTTL)
	eventSvc := service.NewEventService(events, seats, clk)
	tokenSvc := service.NewTokenService(tickets, clk)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := service.NewSweeper(seats, tickets, events, hub, clk, time.Duration(cfg.SweeperIntervalSec)*time.Second)
	go sweeper.Run(ctx)

	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("rabbitmq consumer: %v", err)
		}
	}()

	// Redis backs response caching and rate limiting; both degrade to
	// no-ops when no client could be established.
	var cacheMW, rateMW echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		rateMW = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Printf("redis unavailable, caching and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e)
	router.RegisterPublic(e, handler.NewEventHandler(eventSvc), handler.NewStreamHandler(hub), cacheMW)
	router.RegisterCustomer(e, handler.NewTicketHandler(ticketSvc), cfg.JWTSecret, rateMW)
	router.RegisterStaff(e, handler.NewVerifyHandler(tokenSvc, ticketSvc), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewEventHandler(eventSvc), cfg.JWTSecret)
	if users != nil && tokens != nil {
		router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret, rateMW)
	}

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
