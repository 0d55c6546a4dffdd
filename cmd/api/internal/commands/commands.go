package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/josemwas/HR-management/internal/audit"
	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/config"
	"github.com/josemwas/HR-management/internal/httpapi"
	"github.com/josemwas/HR-management/internal/obs"
	"github.com/josemwas/HR-management/internal/store/memory"
	"github.com/josemwas/HR-management/internal/store/pg"
)

type Globals struct {
	ConfigPath string
	Dev        bool
	Version    string
	Commit     string
	Overrides  Overrides
}

// Overrides are flag and environment values applied on top of the config file.
type Overrides struct {
	Listen     string
	GRPCListen string
	Store      string
	DSN        string
	AuthSecret string
	NATSURL    string

	TrustedProxies []string
}

func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	o := g.Overrides
	if o.Listen != "" {
		cfg.HTTP.Listen = o.Listen
	}
	if o.GRPCListen != "" {
		cfg.GRPC.Listen = o.GRPCListen
	}
	if o.Store != "" {
		cfg.Store = strings.ToLower(o.Store)
	}
	if o.DSN != "" {
		cfg.Database.DSN = o.DSN
	}
	if o.AuthSecret != "" {
		cfg.Auth.Secret = o.AuthSecret
	}
	if o.NATSURL != "" {
		cfg.NATS.URL = o.NATSURL
	}
	if len(o.TrustedProxies) > 0 {
		cfg.HTTP.TrustedProxies = o.TrustedProxies
	}
	if g.Dev {
		cfg.Log.Dev = true
	}
	obs.SetupLogger(cfg.Log.Dev, cfg.Log.Level)
	return cfg, nil
}

// backend is a storage implementation serving both the authorization and audit stores.
type backend interface {
	auth.Store
	audit.Store
}

// services holds everything the commands build from the configuration.
type services struct {
	rbac    *auth.RBACService
	ready   httpapi.ReadyProbe
	closers []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			obs.Logger().Warn().Err(err).Msg("close resource")
		}
	}
}

func openServices(ctx context.Context, cfg *config.Config) (*services, error) {
	svc := &services{}

	var store backend
	switch cfg.Store {
	case config.StoreMemory:
		obs.Logger().Warn().Msg("using in-memory store, data is lost on restart")
		store = memory.New()
	case config.StorePostgres:
		if strings.TrimSpace(cfg.Database.DSN) == "" {
			return nil, errors.New("database.dsn is required for the postgres store (--pg-dsn or HR_PG_DSN)")
		}
		pgStore, err := pg.Open(cfg.Database.DSN, pg.Pool{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		svc.closers = append(svc.closers, pgStore.Close)
		if err := waitForDatabase(ctx, pgStore); err != nil {
			svc.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		store = pgStore
		svc.ready = httpapi.ReadyProbe{DB: pgStore.DB()}
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	var opts []audit.Option
	if cfg.NATS.URL != "" {
		pub, err := audit.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.closers = append(svc.closers, pub.Close)
		opts = append(opts, audit.WithPublisher(pub))
		obs.Logger().Info().Str("subject_prefix", cfg.NATS.SubjectPrefix).Msg("audit fan-out to NATS enabled")
	}
	recorder, err := audit.NewRecorder(store, opts...)
	if err != nil {
		svc.Close()
		return nil, err
	}
	if svc.rbac, err = auth.NewRBACService(store, recorder); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

// waitForDatabase pings until the database answers or 30 seconds have passed.
func waitForDatabase(ctx context.Context, store *pg.Store) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			obs.Logger().Warn().Err(err).Msg("database not reachable yet")
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	return err
}

func configureHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    8 * 1024,
	}
}
