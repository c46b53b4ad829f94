package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	api "github.com/itembased/examdesk/internal/api/http"
	"github.com/itembased/examdesk/internal/auth"
	authmw "github.com/itembased/examdesk/internal/auth/middleware"
	"github.com/itembased/examdesk/internal/config"
	"github.com/itembased/examdesk/internal/db"
	"github.com/itembased/examdesk/internal/exam"
	"github.com/itembased/examdesk/internal/runner"
	"github.com/itembased/examdesk/internal/storage"
	syncx "github.com/itembased/examdesk/internal/sync"
)

const (
	runIdleTTL   = 2 * time.Hour
	sweepEvery   = 10 * time.Minute
	shutdownWait = 15 * time.Second
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		slog.Error("db open failed", "error", err)
		os.Exit(1)
	}
	defer dbh.Close()
	store := exam.NewSQLStore(dbh)

	// --- Blobs ---
	var blobs storage.BlobStore
	switch cfg.BlobDriver {
	case "s3":
		blobs, err = storage.NewS3Store(cfg.S3Bucket, cfg.S3Region)
	default:
		blobs, err = storage.NewFSStore(cfg.BlobBasePath, cfg.PublicURL)
	}
	if err != nil {
		slog.Error("blob store", "driver", cfg.BlobDriver, "error", err)
		os.Exit(1)
	}

	// --- Auth ---
	authSvc := authmw.NewAuthService(cfg.AuthSecret)
	profiles := auth.NewSQLProfiles(dbh)
	gate := auth.NewGate(profiles, cfg)
	flow := auth.NewFlow(auth.NewLocalIdentity(dbh), profiles, gate, authSvc)
	var google *auth.GoogleSignIn
	if cfg.EnableGoogleAuth {
		google = auth.NewGoogleSignIn(cfg, flow)
	}

	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs := runner.NewRegistry()
	go runs.SweepEvery(appCtx, sweepEvery, runIdleTTL)

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Cfg:     cfg,
			DB:      dbh,
			Store:   store,
			Blobs:   blobs,
			Events:  syncx.NewEventRepo(dbh, ""),
			Runs:    runs,
			AuthSvc: authSvc,
			Flow:    flow,
			Gate:    gate,
			Google:  google,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-appCtx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		_ = server.Shutdown(sctx)
	}()

	slog.Info("listening", "addr", cfg.HTTPAddr, "db", cfg.DBDriver, "blobs", cfg.BlobDriver, "base", cfg.BasePath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("server closed")
}
