// Package app wires configuration into a ready Router. Both the Lambda
// entrypoint and the HTTP gateway build their dispatcher here.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"choiceview-connect/internal/audit"
	"choiceview-connect/internal/config"
	"choiceview-connect/internal/routing"
	"choiceview-connect/internal/sms"
	"choiceview-connect/internal/switchapi"
	"choiceview-connect/internal/workflow"
	"choiceview-connect/pkg/logger"
	"choiceview-connect/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// openPostgres is swapped in tests.
var openPostgres = func(ctx context.Context, dsn string) (*sql.DB, error) {
	return utils.OpenPostgres(ctx, "pgx", dsn, utils.PostgresPoolConfig{})
}

// App owns the dispatcher and the connections behind it.
type App struct {
	Router *routing.Router
	Audit  *audit.Service

	closers []func() error
}

// New builds the dispatcher. Backends that are not configured, or that fail
// to initialize, are left disconnected and reported per request; optional
// infrastructure (Redis, Postgres) falls back to in-process implementations.
func New(ctx context.Context, cfg config.Config) *App {
	log := logger.From(ctx)
	a := &App{}

	cache := a.tokenCache(ctx, cfg)

	var backends routing.Backends
	backends.SmsFrom = cfg.Sms.FromNumber
	backends.ClientURL = cfg.Sms.ClientURL

	if sw, err := newSwitch(cfg.Switch, cache); err != nil {
		log.Warn("choiceview switch not connected", "err", err)
	} else {
		backends.Switch = sw
	}

	if b, err := newSmsBackend(ctx, cfg); err != nil {
		log.Warn("sms backend not connected", "backend", cfg.SmsBackendName(), "err", err)
	} else {
		backends.Sms = b
	}

	a.Audit = audit.NewService(a.auditRepo(ctx, cfg))
	a.Router = routing.NewRouter(backends, routing.WithRecorder(routing.AuditAdapter{Audit: a.Audit}))

	log.Info("dispatcher ready",
		"switch", a.Router.SwitchConnected(),
		"sms", a.Router.SmsBackend(),
	)
	return a
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) tokenCache(ctx context.Context, cfg config.Config) switchapi.TokenCache {
	if cfg.Redis.Addr == "" {
		return switchapi.NewMemoryTokenCache()
	}
	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.Redis.Addr})
	if err != nil {
		logger.From(ctx).Warn("redis unavailable, caching tokens in process", "err", err)
		return switchapi.NewMemoryTokenCache()
	}
	a.closers = append(a.closers, rdb.Close)
	return switchapi.NewRedisTokenCache(rdb)
}

func (a *App) auditRepo(ctx context.Context, cfg config.Config) audit.Repository {
	if cfg.DB.URL == "" {
		return audit.NewMemoryRepo()
	}
	db, err := openPostgres(ctx, cfg.DB.URL)
	if err != nil {
		logger.From(ctx).Warn("postgres unavailable, keeping audit in memory", "err", err)
		return audit.NewMemoryRepo()
	}
	repo := audit.NewPostgresRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.From(ctx).Warn("audit schema unavailable, keeping audit in memory", "err", err)
		_ = db.Close()
		return audit.NewMemoryRepo()
	}
	a.closers = append(a.closers, db.Close)
	return repo
}

func newSwitch(cfg config.SwitchConfig, cache switchapi.TokenCache) (workflow.Switch, error) {
	if !cfg.Configured() {
		return nil, errors.New("CHOICEVIEW_SERVICEURL, CHOICEVIEW_CLIENTID and CHOICEVIEW_CLIENTSECRET are required")
	}
	tokens, err := switchapi.NewTokenSource(switchapi.ClientCredentials{
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Audience:     cfg.Audience,
	}, cache, nil)
	if err != nil {
		return nil, err
	}
	return switchapi.NewClient(cfg.ServiceURL, switchapi.WithTokenSource(tokens))
}

func newSmsBackend(ctx context.Context, cfg config.Config) (sms.Backend, error) {
	if cfg.Sms.UseAWS {
		return sms.LoadAWSBackend(ctx, sms.AWSConfig{
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
		})
	}
	if !cfg.Twilio.Configured() {
		return nil, sms.ErrNotConfigured
	}
	return sms.NewTwilioBackend(sms.TwilioConfig{
		AccountSID:   cfg.Twilio.AccountSID,
		AuthToken:    cfg.Twilio.AuthToken,
		PhoneNumber:  cfg.Twilio.PhoneNumber,
		MessagingURL: cfg.Twilio.MessagingURL,
		LookupsURL:   cfg.Twilio.LookupsURL,
	}, nil)
}

// Logger builds the process logger for cfg and installs it as the default.
func Logger(cfg config.Config) *slog.Logger {
	l := logger.New(cfg.App.Env)
	slog.SetDefault(l)
	return l
}
