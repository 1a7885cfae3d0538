package main

import (
	"context"
	"log"
	"os"

	"luminix/internal/config"
	"luminix/internal/db"
	cartrepo "luminix/internal/repository/cart"
	orderrepo "luminix/internal/repository/order"
	profilerepo "luminix/internal/repository/profile"
	"luminix/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	err = seed.Apply(ctx,
		profilerepo.NewPostgres(pool, logger),
		cartrepo.NewPostgres(pool, logger),
		orderrepo.NewPostgres(pool, logger),
	)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Println("seed applied")
}
