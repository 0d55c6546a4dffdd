package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/config"
	"github.com/josemwas/HR-management/internal/httpapi"
	"github.com/josemwas/HR-management/internal/obs"
)

type ServeCmd struct {
	SkipCatalog bool `help:"do not insert missing built-in permissions on startup" env:"HR_SKIP_CATALOG"`

	// The memory store starts empty; these seed it so the server can be logged into.
	SeedOrgName       string `help:"memory store only: organization to create on startup" default:"Development" env:"HR_SEED_ORG_NAME"`
	SeedAdminEmail    string `help:"memory store only: administrator email to create on startup" env:"HR_SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `help:"memory store only: administrator password" env:"HR_SEED_ADMIN_PASSWORD"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := obs.Logger()
	log.Info().Str("version", globals.Version).Str("store", cfg.Store).Msg("starting server")

	obs.Init()
	obs.InitBuildInfo(globals.Version, globals.Commit)

	svc, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if !c.SkipCatalog || cfg.Store == config.StoreMemory {
		created, err := svc.rbac.EnsureCatalog(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("created", created).Msg("permission catalog checked")
	}
	if cfg.Store == config.StoreMemory {
		if err := c.seedMemory(ctx, svc); err != nil {
			return err
		}
	}

	trusted, err := cfg.HTTP.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	api := httpapi.New(httpapi.Options{
		RBAC:         svc.rbac,
		Tokens:       tokens,
		Ready:        svc.ready,
		Version:      globals.Version,
		RateBurst:    cfg.RateLimit.Burst,
		RatePerSec:   cfg.RateLimit.PerSecond,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		CORSOrigins:  cfg.CORS.AllowedOrigins,

		TrustedProxies: trusted,
	})
	srv := configureHTTPServer(cfg.HTTP, api.Handler())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if cfg.GRPC.Listen != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Listen)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcServer = grpc.NewServer()
		httpapi.NewHealthServer(svc.ready).Register(grpcServer)
		go func() {
			log.Info().Str("addr", cfg.GRPC.Listen).Msg("grpc health listening")
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()
	obs.SetReady(true)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-errCh:
		log.Error().Err(err).Msg("server failed")
	}
	obs.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("http shutdown")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	log.Info().Msg("stopped")
	return err
}

func (c *ServeCmd) seedMemory(ctx context.Context, svc *services) error {
	if (c.SeedAdminEmail == "") != (c.SeedAdminPassword == "") {
		return errors.New("--seed-admin-email and --seed-admin-password must be given together")
	}
	if c.SeedAdminEmail == "" {
		obs.Logger().Warn().Msg("memory store has no administrator; pass --seed-admin-email and --seed-admin-password to log in")
	}
	return bootstrapOrganization(ctx, svc.rbac, seedSpec{
		OrgName:       c.SeedOrgName,
		AdminEmail:    c.SeedAdminEmail,
		AdminPassword: c.SeedAdminPassword,
		AdminFirst:    "System",
		AdminLast:     "Administrator",
	})
}
