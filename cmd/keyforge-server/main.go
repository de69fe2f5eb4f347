// Command keyforge-server runs the data-plane and control-plane HTTP
// listeners: key attribute lookup and streamed signing for clients,
// health and metrics endpoints for operators.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyforge-project/keyforge/clusterkey"
	"github.com/keyforge-project/keyforge/datakey"
	"github.com/keyforge-project/keyforge/dataplane"
	"github.com/keyforge-project/keyforge/encryption"
	"github.com/keyforge-project/keyforge/health"
	"github.com/keyforge-project/keyforge/internal/config"
	"github.com/keyforge-project/keyforge/internal/logger"
	"github.com/keyforge-project/keyforge/internal/metrics"
	"github.com/keyforge-project/keyforge/kms"
	"github.com/keyforge-project/keyforge/signbackend"
	"github.com/keyforge-project/keyforge/storage/memory"
	"github.com/keyforge-project/keyforge/storage/postgres"
	"github.com/keyforge-project/keyforge/token"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML/JSON configuration file")
	envFile := flag.String("env", ".env", "optional .env file overlaid on top of the config file")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "keyforge-server: %v\n", err)
		os.Exit(1)
	}
}

// backingStore is the slice of a storage backend this binary wires
// up: one repository per entity plus a connectivity check, satisfied
// by both storage/memory and storage/postgres.
type backingStore struct {
	clusterKeys clusterkey.Repository
	dataKeys    datakey.Repository
	tokens      token.Repository
	ping        func(context.Context) error
	close       func() error
}

func (s *backingStore) Ping(ctx context.Context) error { return s.ping(ctx) }

func run(configPath, envFile string) error {
	cfg, err := config.LoadFromFile(configPath, envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewLogger(os.Stdout, logger.ParseLevel(cfg.Logging.Level))

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.close() }()

	adapter, err := openKMS(cfg, log)
	if err != nil {
		return err
	}

	engine, err := encryption.NewEngine(store.clusterKeys, adapter, encryption.Config{
		RotateInDays: cfg.Encryption.RotateInDays,
		Algorithm:    cfg.Encryption.Algorithm,
		KeepInDays:   cfg.Encryption.KeepInDays,
	}, log)
	if err != nil {
		return fmt.Errorf("build encryption engine: %w", err)
	}

	ctx := context.Background()
	if err := engine.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize encryption engine: %w", err)
	}

	backend := signbackend.New(engine)
	readCache := datakey.NewCache(nil, 0)
	signCache := datakey.NewCache(nil, 0)
	keyService := datakey.NewService(store.dataKeys, backend, readCache, signCache, log)

	authenticator := dataplane.NewAuthenticator(store.tokens)

	mux := http.NewServeMux()
	mux.Handle("/key-info", dataplane.NewKeyInfoHandler(keyService, authenticator, log))
	mux.Handle("/sign-stream", dataplane.NewSignStreamServer(keyService, authenticator, log).Handler())

	dataServer := &http.Server{
		Addr:              cfg.DataServer.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	checker := health.NewChecker(store, engine, adapter)
	healthServer := health.NewServer(checker, log, cfg.Health.Addr)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error", logger.Error(err))
			}
		}()
	}

	if err := healthServer.Start(); err != nil {
		return fmt.Errorf("start health server: %w", err)
	}

	go func() {
		log.Info("starting data plane server", logger.String("addr", cfg.DataServer.Addr))
		if err := dataServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("data plane server error", logger.Error(err))
		}
	}()

	waitForShutdown(log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DataServer.ShutdownTimeout)
	defer cancel()

	if err := dataServer.Shutdown(shutdownCtx); err != nil {
		log.Error("data plane server shutdown error", logger.Error(err))
	}
	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Error("health server shutdown error", logger.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown error", logger.Error(err))
		}
	}
	return nil
}

func waitForShutdown(log logger.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
}

func openStore(cfg *config.Config, log logger.Logger) (*backingStore, error) {
	if cfg.Database == nil {
		log.Warn("no database configured, using in-memory storage")
		mem := memory.NewStore()
		return &backingStore{
			clusterKeys: mem.ClusterKeys,
			dataKeys:    mem.DataKeys,
			tokens:      mem.Tokens,
			ping:        mem.Ping,
			close:       func() error { return nil },
		}, nil
	}

	pg, err := postgres.NewStore(context.Background(), postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &backingStore{
		clusterKeys: pg.ClusterKeys(),
		dataKeys:    pg.DataKeys(),
		tokens:      pg.Tokens(),
		ping:        pg.Ping,
		close:       pg.Close,
	}, nil
}

func openKMS(cfg *config.Config, log logger.Logger) (kms.Adapter, error) {
	if cfg.KMS == nil {
		return nil, fmt.Errorf("kms configuration is required")
	}
	kmsType, err := kms.ParseType(cfg.KMS.Type)
	if err != nil {
		return nil, err
	}
	switch kmsType {
	case kms.TypeRemote:
		return kms.NewRemoteAdapter(kms.RemoteConfig{
			Endpoint: cfg.KMS.Endpoint,
			KeyID:    cfg.KMS.KeyID,
			Token:    cfg.KMS.Token,
			Timeout:  cfg.KMS.Timeout,
		}), nil
	default:
		return kms.NewDummy(log), nil
	}
}
