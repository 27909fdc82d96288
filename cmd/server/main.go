package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/bidopt/internal/config"
	"github.com/AngelCh415/bidopt/internal/engine"
	"github.com/AngelCh415/bidopt/internal/httpx"
	"github.com/AngelCh415/bidopt/internal/ingest"
	"github.com/AngelCh415/bidopt/internal/metrics"
	"github.com/AngelCh415/bidopt/internal/store"
)

func main() {
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)

	eng, err := engine.New(logger, col, cfg.ExcludeSites)
	if err != nil {
		logger.Error("bad exclude pattern", slog.String("err", err.Error()))
		os.Exit(1)
	}

	cl := ingest.NewHTTPClient(cfg.HTTPTimeout)
	fetcher := ingest.NewFetcher(cl, logger, cfg.MaxUploadBytes)
	st := store.NewMemoryStore()

	r := httpx.NewRouter(logger, cfg, eng, st, fetcher, col, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
