package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"debtster-dashboard/internal/clients"
	"debtster-dashboard/internal/config"
	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/logger"
	"debtster-dashboard/internal/repository"
	"debtster-dashboard/internal/service"
	"debtster-dashboard/internal/transport/auth"
	"debtster-dashboard/internal/transport/rest"
	"debtster-dashboard/internal/transport/websocket"
	"debtster-dashboard/pkg/database/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Info("no .env file found, using system env or defaults")
	}

	// top-level context which we can cancel on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := mustInitPostgres(ctx, log, cfg.Postgres)
	defer func() { _ = postgres.Close(db) }()

	redisClient := mustInitRedis(ctx, log, cfg.Redis)
	defer redisClient.Close()

	s3Client, err := clients.NewS3Client(ctx, clients.S3Config{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Bucket:          cfg.S3.Bucket,
		UseSSL:          cfg.S3.UseSSL,
		Region:          cfg.S3.Region,
		Prefix:          cfg.S3.Prefix,
	})
	if err != nil {
		log.Fatal("s3 init error", zap.Error(err))
	}

	storageClient, err := clients.NewLocalStorage(cfg.ExportDir, cfg.FilesPublicPrefix, cfg.ExternalURL)
	if err != nil {
		log.Fatal("storage init error", zap.Error(err))
	}

	wsHub := websocket.NewHub(log.Named("ws"))
	go wsHub.Run(ctx)
	wsClient := clients.NewWebSocketClient(wsHub)

	caseRepo := repository.NewCaseRepository(db)
	commRepo := repository.NewCommunicationRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	debtorRepo := repository.NewDebtorRepository(db)
	tokenRepo := repository.NewPersonalAccessTokenRepository(db)

	policy := domain.NewStatusPolicy(domain.StatusPolicyOptions{
		AllowCancelled: cfg.Cases.AllowCancelled,
		LockClosed:     cfg.Cases.LockClosed,
	})

	analyticsSvc := service.NewAnalyticsService(analyticsRepo, paymentRepo, redisClient, cfg.Cases.AnalyticsCacheTTL)
	caseSvc := service.NewCaseService(caseRepo, commRepo, attachmentRepo, policy, wsClient, analyticsSvc)
	attachmentSvc := service.NewAttachmentService(caseRepo, attachmentRepo, s3Client, cfg.S3.URLTTL)
	debtorSvc := service.NewDebtorService(debtorRepo, analyticsSvc)
	paymentSvc := service.NewPaymentService(paymentRepo)
	exportSvc := service.NewExportService(caseSvc, redisClient, storageClient, wsClient, cfg.ExportTTL, log.Named("export"))

	sanctumMiddleware := auth.SanctumMiddleware(tokenRepo)

	handler := rest.NewHandler(rest.Services{
		Cases:       caseSvc,
		Analytics:   analyticsSvc,
		Attachments: attachmentSvc,
		Debtors:     debtorSvc,
		Payments:    paymentSvc,
		Exporter:    exportSvc,
		ExportList:  exportSvc,
	}, log.Named("http"))
	router := handler.InitRouterWithAuth(sanctumMiddleware)

	// public root router; everything mounted under it at / requires a token
	root := chi.NewRouter()

	root.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		rest.Success(w, "ok", nil)
	})

	// public: serve generated exports
	root.Get("/files/{file}", func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		path, err := storageClient.Resolve(file)
		if err != nil {
			if errors.Is(err, clients.ErrFileNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "failed to access file", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clients.OriginalName(file)))
		http.ServeFile(w, r, path)
	})

	// websocket clients pass ?token=, resolved by the auth middleware
	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.GetUserID(r.Context())
		if err != nil {
			rest.ErrorUnauthorized(w, "Unauthorized")
			return
		}

		logger.FromContext(r.Context()).Info("ws connected", zap.Int64("user_id", userID))
		wsHub.HandleWebSocket(w, r, userID)
	})

	root.Mount("/", router)

	corsHandler := withCORS(root)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	// background cleaner for expired export files
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := storageClient.CleanupOlderThan(cfg.ExportTTL); err != nil {
					log.Warn("storage cleanup error", zap.Error(err))
				}
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	case sig := <-stop:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown error", zap.Error(err))
		}

		// running exports finish before their stores are closed
		exportSvc.Wait()
		cancel()

		log.Info("shutdown complete")
	}
}

func mustInitPostgres(ctx context.Context, log *zap.Logger, cfg config.PostgresConfig) *sql.DB {
	db, err := postgres.NewPostgresConnection(ctx, postgres.ConnectionInfo{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Username:     cfg.User,
		DBName:       cfg.DBName,
		SSLMode:      cfg.SSLMode,
		Password:     cfg.Password,
		MaxOpenConns: cfg.MaxConns,
		MaxIdleConns: cfg.MaxConns / 2,
	})
	if err != nil {
		log.Fatal("postgres init error", zap.Error(err))
	}
	return db
}

func mustInitRedis(ctx context.Context, log *zap.Logger, cfg config.RedisConfig) *clients.RedisClient {
	client, err := clients.NewRedisClient(ctx, clients.RedisConfig{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Prefix:      cfg.Prefix,
	})
	if err != nil {
		log.Fatal("redis init error", zap.Error(err))
	}
	return client
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
