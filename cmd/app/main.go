package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkaraca/skyticket/config"
	"github.com/mkaraca/skyticket/internal/bootstrap"
	"github.com/mkaraca/skyticket/internal/cache"
	"github.com/mkaraca/skyticket/internal/kafka"
	"github.com/mkaraca/skyticket/internal/ledger"
	"github.com/mkaraca/skyticket/internal/locks"
	"github.com/mkaraca/skyticket/internal/repository"
	"github.com/mkaraca/skyticket/internal/service/booking"
	"github.com/mkaraca/skyticket/internal/service/schedule"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FlightsCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	cityRepo := repository.NewCityRepository(pool)

	// One lock table per flight id, shared by the ledger and the schedule
	// store so capacity edits serialize against bookings.
	flightLocks := locks.NewKeyedMutex()
	seatLedger := ledger.NewSeatLedger(ticketRepo, flightLocks)
	scheduleService := schedule.NewScheduleService(flightRepo, cityRepo, seatLedger, redisCache, flightLocks,
		schedule.WithProducer(producer, cfg.Kafka.TicketEventsTopic))
	bookingService := booking.NewBookingService(
		seatLedger,
		scheduleService,
		ticketRepo,
		redisCache,
		producer,
		cfg.Kafka.TicketEventsTopic,
		time.Duration(cfg.Booking.SeatHoldTTLSeconds)*time.Second,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	if err := bootstrap.Run(ctx, cfg, scheduleService, bookingService, cityRepo); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
