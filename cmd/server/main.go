package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"flowork/terminal/internal/cache"
	"flowork/terminal/internal/config"
	"flowork/terminal/internal/floworkapi"
	"flowork/terminal/internal/httpapi"
	"flowork/terminal/internal/logger"
	"flowork/terminal/internal/metrics"
	"flowork/terminal/internal/page"
	"flowork/terminal/internal/service"
	"flowork/terminal/internal/store/memory"
	"flowork/terminal/internal/taskpoll"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 8 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "flowork-terminal",
		Level:       logger.ParseLevel(cfg.LogLevel),
		WarnStack:   cfg.LogWarnStack,
		Format:      cfg.LogFormat,
	})

	if err := validateSecurityConfig(cfg); err != nil {
		log.Error(context.Background(), "invalid security configuration", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped with error", err)
		os.Exit(1)
	}
	log.Info(ctx, "server stopped")
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	closers := make([]func() error, 0, 1)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn(ctx, fmt.Sprintf("close error: %v", err))
			}
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var cacheStore cache.Cache = cache.NewMemoryCache(nil)
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "flowork:")
		if err := redisCache.Ping(startCtx); err != nil {
			log.Warn(startCtx, fmt.Sprintf("redis unavailable (%v), using in-process cache", err))
			_ = redisCache.Close()
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			log.Info(startCtx, "cache: redis")
		}
	} else {
		log.Info(startCtx, "cache: in-process")
	}

	client, err := floworkapi.New(cfg.UpstreamBaseURL, floworkapi.Options{
		HTTPClient:    &http.Client{Timeout: cfg.UpstreamTimeout},
		CSRFToken:     cfg.UpstreamCSRFToken,
		SessionCookie: cfg.UpstreamSessionCookie,
		RPS:           cfg.UpstreamRPS,
		Logger:        log,
		Metrics:       m,
	})
	if err != nil {
		return errors.Wrap(err, "upstream client")
	}
	if cfg.UpstreamCSRFToken == "" && cfg.UpstreamCSRFPage != "" {
		if _, err := client.FetchCSRFToken(startCtx, cfg.UpstreamCSRFPage); err != nil {
			log.Warn(startCtx, fmt.Sprintf("could not read upstream CSRF token from %s: %v", cfg.UpstreamCSRFPage, err))
		}
	}

	users, err := memory.NewSeeded(startCtx, log, cfg.AdminUsername, cfg.AdminPasswordHash)
	if err != nil {
		return err
	}

	deps := page.Deps{
		Client:  client,
		Cache:   cacheStore,
		Logger:  log,
		Metrics: m,
		Poller: taskpoll.Poller{
			Interval:    cfg.PollInterval,
			MaxInterval: cfg.PollMaxInterval,
			MaxAttempts: cfg.PollMaxAttempts,
			Logger:      log,
			Metrics:     m,
		},
		HeldCartTTL: cfg.HeldCartTTL,
		SettingsTTL: cfg.SettingsTTL,
	}
	svc := service.New(deps, service.Options{IdleTTL: cfg.SessionIdleTTL, Logger: log, Metrics: m})
	defer svc.CloseAll(context.Background())

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.TokenTTL, cfg.ManagerPIN, users)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		Logger:         log,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, fmt.Sprintf("terminal server listening on %s", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		return svc.RunSweeper(gctx, sweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func validateSecurityConfig(cfg config.Config) error {
	if cfg.IsProd() && len(cfg.AuthSecret) < 32 {
		return errors.New("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.ManagerPIN == "" {
		if cfg.IsProd() {
			return errors.New("MANAGER_PIN must be set")
		}
		return nil
	}
	if len(cfg.ManagerPIN) < 6 {
		return errors.New("MANAGER_PIN must be at least 6 digits")
	}
	for _, r := range cfg.ManagerPIN {
		if r < '0' || r > '9' {
			return errors.New("MANAGER_PIN must contain digits only")
		}
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return errors.Wrap(err, "MANAGER_PIN is too weak")
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"123456": true, "654321": true, "000000": true, "111111": true,
		"121212": true, "112233": true, "123123": true, "102030": true,
	}
	if known[pin] {
		return errors.New("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return errors.New("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return errors.New("sequential PIN not allowed")
	}

	return nil
}
