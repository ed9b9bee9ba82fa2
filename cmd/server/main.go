package main

import (
	"context"
	"log"
	"net/http"

	"github.com/dapur-pos/api/internal/config"
	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/printer"
	"github.com/dapur-pos/api/internal/router"
	"github.com/dapur-pos/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	dispatcher := printer.NewDispatcher(printer.LogPrinter{}, cfg.PrintDebounce)

	r := router.New(cfg, queries, pool, hub, dispatcher)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
