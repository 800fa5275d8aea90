package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"tgdrive/internal/auth"
	"tgdrive/internal/blob"
	"tgdrive/internal/blob/memstore"
	"tgdrive/internal/blob/s3store"
	"tgdrive/internal/blob/telegram"
	"tgdrive/internal/config"
	"tgdrive/internal/credential"
	"tgdrive/internal/domain/repositories"
	driveRepo "tgdrive/internal/domain/repositories/drive"
	"tgdrive/internal/events"
	"tgdrive/internal/handler"
	"tgdrive/internal/metrics"
	"tgdrive/internal/middleware"
	"tgdrive/internal/repository/memory"
	"tgdrive/internal/repository/postgres"
	postgresDrive "tgdrive/internal/repository/postgres/drive"
	accountSvc "tgdrive/internal/service/account"
	driveService "tgdrive/internal/service/drive"
)

// storage is the metadata backend selected by STORAGE
type storage struct {
	folders   driveRepo.FolderRepository
	files     driveRepo.FileRepository
	accounts  driveRepo.AccountRepository
	txManager repositories.TransactionManager
	pinger    handler.Pinger
	close     func()
}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, logCloser, err := config.NewLogger(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.Storage,
		"transport", cfg.Transport,
		"cipher", cfg.CredentialCipher,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtVerifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.close()

	key, _ := credential.ParseKey(cfg.CredentialKey)
	strategy, _ := credential.ParseStrategy(cfg.CredentialCipher)
	cipher, err := credential.New(strategy, key)
	if err != nil {
		log.Fatalf("Failed to create credential cipher: %v", err)
	}

	m := metrics.New()

	bus := events.NewBus(logger)
	bus.SubscribeAll(events.AuditLogger(logger))
	bus.SubscribeAll(m.EventCounter())

	blobs := blob.NewCache(transportFactory(cfg, logger), m, logger)

	// Create services
	hierarchy := driveService.NewHierarchyStore(store.folders, store.files, logger)
	folderService := driveService.NewFolderService(driveService.FolderServiceDeps{
		FolderRepo:    store.folders,
		FileRepo:      store.files,
		Hierarchy:     hierarchy,
		Moves:         driveService.NewMoveValidator(store.folders, logger),
		TxManager:     store.txManager,
		Blobs:         blobs,
		Bus:           bus,
		Logger:        logger,
		RemoteTimeout: cfg.RemoteTimeout,
	})
	fileService := driveService.NewFileService(driveService.FileServiceDeps{
		FileRepo:       store.files,
		Hierarchy:      hierarchy,
		TxManager:      store.txManager,
		Blobs:          blobs,
		Bus:            bus,
		Logger:         logger,
		RemoteTimeout:  cfg.RemoteTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	treeService := driveService.NewTreeService(store.folders, logger)
	accountService := accountSvc.NewAccountService(store.accounts, blobs, cipher, accountSvc.Config{
		Transport:     cfg.Transport,
		RemoteTimeout: cfg.RemoteTimeout,
	}, logger)
	resolver := accountSvc.NewCredentialResolver(store.accounts, cipher, cfg.Transport, logger)

	logger.Info("services initialized")

	mux := handler.NewRouter(handler.Routes{
		Accounts:     handler.NewAccountHandler(accountService, logger),
		Folders:      handler.NewFolderHandler(folderService, logger),
		Files:        handler.NewFileHandler(fileService, cfg.MaxUploadBytes, logger),
		Tree:         handler.NewTreeHandler(treeService, logger),
		Health:       handler.NewHealthHandler(store.pinger, logger),
		Metrics:      m.Handler(),
		Authenticate: middleware.Auth(jwtVerifier, logger),
		Resolve:      middleware.Credentials(resolver, logger),
	})

	// Order: CORS → RequestLogger → Recovery → Routes (auth is per route)
	var h http.Handler = middleware.Chain(mux,
		middleware.RequestLogger(logger, m),
		middleware.Recovery(logger),
	)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // Disabled so large downloads can stream
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newVerifier prefers JWKS and falls back to the shared secret
func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.JWTVerifier, error) {
	if cfg.JWKSURL != "" {
		return auth.NewJWTVerifier(cfg.JWKSURL, logger)
	}
	return auth.NewHMACVerifier([]byte(cfg.JWTSecret), logger)
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.Storage == "memory" {
		if !cfg.IsDev() {
			logger.Warn("memory storage loses all metadata on restart")
		}
		s := memory.NewStore()
		return &storage{
			folders:   memory.NewFolderRepository(s),
			files:     memory.NewFileRepository(s),
			accounts:  memory.NewAccountRepository(s),
			txManager: memory.NewTransactionManager(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Logger: logger,
	}
	return &storage{
		folders:   postgresDrive.NewFolderRepository(repoConfig),
		files:     postgresDrive.NewFileRepository(repoConfig),
		accounts:  postgresDrive.NewAccountRepository(repoConfig),
		txManager: postgres.NewTransactionManager(repoConfig),
		pinger:    pool,
		close:     pool.Close,
	}, nil
}

// transportFactory builds the adapter constructor for the configured transport
func transportFactory(cfg *config.Config, logger *slog.Logger) blob.Factory {
	switch cfg.Transport {
	case "s3":
		return s3store.NewFactory(s3store.Options{
			Endpoint: cfg.S3Endpoint,
			Region:   cfg.S3Region,
		}, logger)
	case "memory":
		logger.Warn("memory transport keeps file content in process memory")
		return memstore.NewBackend().Factory()
	default:
		return telegram.NewFactory(telegram.Options{
			APIURL:        cfg.TelegramAPIURL,
			Timeout:       cfg.RemoteTimeout,
			RatePerSecond: cfg.TelegramRatePerSecond,
			Burst:         cfg.TelegramBurst,
		}, logger)
	}
}
