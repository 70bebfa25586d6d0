package main

import (
	"log"

	"github.com/RektefeMaster/parts-backend/internal/cache"
	"github.com/RektefeMaster/parts-backend/internal/config"
	"github.com/RektefeMaster/parts-backend/internal/db"
	"github.com/RektefeMaster/parts-backend/internal/model"
	"github.com/RektefeMaster/parts-backend/internal/repository"
	"github.com/RektefeMaster/parts-backend/internal/server"
	"github.com/RektefeMaster/parts-backend/internal/service"
	"github.com/RektefeMaster/parts-backend/internal/sweep"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	var store repository.Store
	if cfg.DBHost != "" {
		conn, err := db.Connect(cfg)
		if err != nil {
			log.Fatalf("db connect error: %v", err)
		}
		if err := conn.AutoMigrate(&model.Part{}, &model.Reservation{}); err != nil {
			log.Fatalf("auto migrate error: %v", err)
		}
		store = repository.NewGormStore(conn)
	} else {
		log.Printf("DB_HOST not set; using in-memory store (data is not durable)")
		store = repository.NewMemoryStore()
	}

	var idem service.IdempotencyStore
	if rdb := cache.NewClient(cfg.RedisURL); rdb != nil {
		idem = cache.NewRedisIdempotency(rdb, cfg.ReservationWindow)
	}

	srv := server.New(store, idem, cfg)

	sweeper, err := sweep.New(srv.ReservationService(), cfg.SweepInterval, cfg.SweepBatch)
	if err != nil {
		log.Fatalf("sweeper init error: %v", err)
	}
	if err := sweeper.Start(); err != nil {
		log.Fatalf("sweeper start error: %v", err)
	}
	defer func() {
		if err := sweeper.Stop(); err != nil {
			log.Printf("sweeper shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("starting server on %s", addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
