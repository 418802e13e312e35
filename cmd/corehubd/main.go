// Command corehubd runs the personal-data API server: it loads
// configuration, builds the system-streams catalogue, opens the control and
// per-user event databases, wires every component, and serves the abridged
// HTTP surface until signaled to shut down. Grounded on
// internal/cli/dev.go's config-load -> build -> signal.Notify -> Start ->
// Shutdown shape, flattened into a single binary since the operator-facing
// CLI (dev watcher, schema migration, SDK generation) is out of scope here.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/streamhub/corehub/internal/accountstorage"
	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/controldb"
	"github.com/streamhub/corehub/internal/eventstore"
	"github.com/streamhub/corehub/internal/httpapi"
	"github.com/streamhub/corehub/internal/methodcontext"
	"github.com/streamhub/corehub/internal/platformregistry"
	"github.com/streamhub/corehub/internal/previewcache"
	"github.com/streamhub/corehub/internal/registration"
	"github.com/streamhub/corehub/internal/systemstreams"
	"github.com/streamhub/corehub/internal/usersindex"
)

const (
	accessCacheCapacity = 4096
	sessionTouchQueue   = 256
	usersIndexCacheSize = 4096
	version             = "0.1.0"
)

func main() {
	setupLogging()

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	catalogue, err := systemstreams.Build(nil, systemstreams.CatalogueConfig{})
	if err != nil {
		log.Error().Err(err).Msg("building system streams catalogue")
		os.Exit(2)
	}

	cdb, err := controldb.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("opening control database")
	}

	usersIdx := usersindex.New(cdb, usersIndexCacheSize)
	accounts := accountstorage.New(cdb, cfg.Auth.Password)
	mall := eventstore.NewMall(&cfg.Database, filepath.Join(filepath.Dir(cfg.Database.Path), "users"))

	var registry platformregistry.PlatformRegistryPort
	if !cfg.Platform.DNSLess() {
		registry = platformregistry.NewHTTPPlatformRegistry(cfg.Platform)
	}

	regDeps := &registration.Dependencies{
		Catalogue:    catalogue,
		UsersIndex:   usersIdx,
		AccountStore: accounts,
		Mall:         mall,
		Registry:     registry,
		Mailer:       registration.NoopMailer{},
		PlatformCfg:  cfg.Platform,
		AccessCfg:    cfg.Access,
	}

	srv := &httpapi.Server{
		Catalogue:    catalogue,
		UsersIndex:   usersIdx,
		Mall:         mall,
		AccountStore: accounts,
		ControlDB:    cdb,
		AccessCache:  methodcontext.NewAccessCache(accessCacheCapacity),
		AccessCfg:    cfg.Access,
		Registration: regDeps,
		Version:      version,
	}
	srv.SessionTouch = methodcontext.NewSessionTouch(httpapi.NewMallToucher(srv), sessionTouchQueue)

	previews, err := previewcache.New(cfg.PreviewCache.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("opening preview cache")
	}
	sweep := previewcache.NewSweepService(previews, cfg.PreviewCache.MaxAge, cfg.PreviewCache.SweepInterval)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      httpapi.NewRouter(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweep.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("error shutting down HTTP server")
		}
		sweep.Stop()
		srv.SessionTouch.Stop()
		cancel()
	}()

	log.Info().Str("addr", cfg.Server.Address()).Msg("starting corehub server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}

	<-ctx.Done()
}

func setupLogging() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
