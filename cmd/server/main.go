package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/toko-nastar/api/internal/config"
	"github.com/toko-nastar/api/internal/localstore"
	"github.com/toko-nastar/api/internal/router"
	"github.com/toko-nastar/api/internal/service"
	"github.com/toko-nastar/api/internal/sheet"
	"github.com/toko-nastar/api/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}
	cfg := config.Load()

	store, err := localstore.Open(cfg.DataPath)
	if err != nil {
		log.Fatalf("open local store %s: %v", cfg.DataPath, err)
	}
	defer store.Close()

	sheets := sheet.New(cfg.RemoteBaseURL, cfg.RemoteAPIKey)

	hub := ws.NewHub()
	go hub.Run()

	svc := service.New(sheets, store, hub)

	interval, err := time.ParseDuration(cfg.ProbeInterval)
	if err != nil || interval <= 0 {
		interval = 30 * time.Second
	}
	go probeConnectivity(svc, sheets, interval)

	r := router.New(svc, hub)
	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}

// probeConnectivity pings the remote store on a fixed interval and
// feeds the result to the sync service, which drains the retry queue
// on every offline-to-online transition. An unconfigured remote
// counts as offline.
func probeConnectivity(svc *service.Sync, sheets *sheet.Client, interval time.Duration) {
	probe := func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		online := sheets.Configured() && sheets.Ping(ctx) == nil
		svc.SetOnline(ctx, online)
	}

	probe()
	for range time.Tick(interval) {
		probe()
	}
}
