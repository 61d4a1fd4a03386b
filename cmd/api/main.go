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

	"choiceview-connect/internal/app"
	"choiceview-connect/internal/auth"
	"choiceview-connect/internal/config"
	"choiceview-connect/internal/httpapi"
	"choiceview-connect/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := app.Logger(cfg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var authMW gin.HandlerFunc
	if cfg.Gateway.JWTSecret != "" {
		authManager, err := auth.NewManager(cfg.Gateway)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
		authMW = auth.RequireToken(authManager)
	} else {
		log.Warn("GATEWAY_JWT_SECRET not set, invoke route is unauthenticated")
	}

	a := app.New(logger.With(rootCtx, log), cfg)
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("close failed", "err", err)
		}
	}()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	limiter := httpapi.NewIPRateLimiter(rate.Limit(cfg.Gateway.RateLimit), cfg.Gateway.RateBurst)
	registerRoutes(r, httpapi.Handlers{Router: a.Router}, limiter.Middleware(), authMW)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
