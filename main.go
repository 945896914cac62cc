package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vehicle_parking/internal/api"
	"vehicle_parking/internal/api/handler"
	"vehicle_parking/internal/api/middleware"
	"vehicle_parking/internal/cache"
	"vehicle_parking/internal/config"
	"vehicle_parking/internal/repository/postgresql"
	"vehicle_parking/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load configuration: %v", err)
	}

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	defer db.Close()
	log.Println("connected to database")

	denylist := cache.NewTokenDenylist(cfg.RedisAddr, cfg.RedisDB)
	defer denylist.Close()
	if err := denylist.Ping(context.Background()); err != nil {
		log.Fatalf("could not connect to redis: %v", err)
	}
	log.Println("connected to redis")

	userRepo := postgresql.NewPgUserRepository(db)
	lotRepo := postgresql.NewPgParkingLotRepository(db)
	spotRepo := postgresql.NewPgParkingSpotRepository(db)
	reservationRepo := postgresql.NewPgReservationRepository(db)

	hub := handler.NewAvailabilityHub()
	go hub.Start()

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	parkingService := service.NewParkingService(lotRepo, spotRepo)
	reservationService := service.NewReservationService(reservationRepo, lotRepo, hub)

	// The admin account is predefined, not registered.
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authService.EnsureAdmin(seedCtx, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminFullName); err != nil {
		cancelSeed()
		log.Fatalf("could not seed admin account: %v", err)
	}
	cancelSeed()

	authMw := middleware.NewAuthMiddleware(authService, denylist)
	router := api.SetupRouter(authService, parkingService, reservationService, authMw, denylist, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("server stopped")
}
