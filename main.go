package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdfscan/pdfscan/handlers"
	"github.com/pdfscan/pdfscan/internal/config"
	"github.com/pdfscan/pdfscan/internal/database"
	"github.com/pdfscan/pdfscan/internal/document/handler"
	"github.com/pdfscan/pdfscan/internal/document/repository"
	"github.com/pdfscan/pdfscan/internal/document/service"
	"github.com/pdfscan/pdfscan/internal/ocr"
	"github.com/pdfscan/pdfscan/internal/oidc"
	"github.com/pdfscan/pdfscan/internal/revocation"
	"github.com/pdfscan/pdfscan/internal/storage"
	"github.com/pdfscan/pdfscan/internal/tokens"
	"github.com/pdfscan/pdfscan/pkg/logger"
	"github.com/pdfscan/pdfscan/pkg/metrics"
	"github.com/pdfscan/pdfscan/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL is applied before config loads so config errors are visible.
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	logger.Infof("config loaded: documents=%s objects=%s redis=%v auth=%v",
		cfg.Documents.Backend, cfg.Storage.Backend, cfg.Redis.Host != "", cfg.AuthEnabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Infof("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config) error {
	checks := map[string]handlers.Check{}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeRepo)

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	extractor, err := ocr.NewGeminiExtractor(ctx, ocr.GeminiConfig{
		ProjectID:       cfg.OCR.ProjectID,
		Region:          cfg.OCR.Region,
		Model:           cfg.OCR.Model,
		CredentialsFile: cfg.OCR.CredentialsFile,
		Temperature:     cfg.OCR.Temperature,
	})
	if err != nil {
		return fmt.Errorf("ocr: %w", err)
	}
	closers = append(closers, func() { _ = extractor.Close() })
	logger.Infof("OCR model %s in %s", cfg.OCR.Model, cfg.OCR.Region)

	// Redis is optional: it backs the distributed rate limiter and the
	// token denylist.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = database.ConnectRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			if cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis {
				return err
			}
			logger.Warnf("redis unavailable, continuing without it: %v", err)
		} else {
			closers = append(closers, func() { _ = rdb.Close() })
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			logger.Infof("connected to Redis at %s", cfg.Redis.Addr())
		}
	}

	svc := service.New(repo, store, extractor, service.Config{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		ExtractTimeout: cfg.Upload.ExtractTimeout,
	})
	checks["documents"] = repo.Ping
	checks["storage"] = store.Ping

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger(), gin.Recovery(), middleware.CORS(cfg.Server.CORSOrigins))

	var guard []gin.HandlerFunc
	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}
	var revoker handlers.Revoker
	if verifier != nil {
		var deny middleware.Denylist
		if rdb != nil {
			d := revocation.New(rdb)
			deny, revoker = d, d
		}
		auth := middleware.AuthMiddleware(verifier, deny)
		guard = append(guard, auth)
		handlers.NewAuthHandler(revoker).Register(r, auth)
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			guard = append(guard, middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			guard = append(guard, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	handler.RegisterDocumentRoutes(r, svc, guard...)
	handlers.RegisterHealth(r, startTime, checks)
	handlers.RegisterSwagger(r)
	handlers.RegisterWeb(r, cfg.Poller.Interval.Milliseconds(), cfg.Poller.MaxAttempts)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("pdfscan listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func newRepository(ctx context.Context, cfg *config.Config) (repository.Repository, func(), error) {
	switch cfg.Documents.Backend {
	case config.BackendMongo:
		client, err := database.ConnectMongoRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepo(client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("mongo indexes: %v", err)
		}
		logger.Infof("document store: mongo %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.BackendFirestore:
		client, err := database.NewFirestoreClient(ctx, cfg.Firestore.ProjectID, cfg.OCR.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("document store: firestore %s/%s", cfg.Firestore.ProjectID, cfg.Firestore.Collection)
		return repository.NewFirestoreRepo(client, cfg.Firestore.Collection), func() { _ = client.Close() }, nil
	}
	logger.Warnf("document store: memory (records are lost on restart)")
	return repository.NewMemoryRepo(), func() {}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMinIO:
		m := cfg.Storage.MinIO
		s, err := storage.NewMinIOStorage(ctx, &storage.MinIOConfig{
			Endpoint:       m.Endpoint,
			AccessKey:      m.AccessKey,
			SecretKey:      m.SecretKey,
			UseSSL:         m.UseSSL,
			Bucket:         m.Bucket,
			Region:         m.Region,
			PublicEndpoint: m.PublicEndpoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("minio: %w", err)
		}
		logger.Infof("object store: %s/%s", m.Endpoint, m.Bucket)
		return s, func() {}, nil

	case config.BackendGCS:
		client, err := database.NewGCSClient(ctx, cfg.OCR.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		s, err := storage.NewGCSStorage(client, &storage.GCSConfig{Bucket: cfg.Storage.GCS.Bucket})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("gcs: %w", err)
		}
		logger.Infof("object store: gs://%s", cfg.Storage.GCS.Bucket)
		return s, func() { _ = client.Close() }, nil
	}
	logger.Warnf("object store: memory (uploads are lost on restart)")
	return storage.NewMemoryStorage(), func() {}, nil
}

// newVerifier returns nil when auth is disabled. Keycloak wins over
// JWT_SECRET; the insecure verifier is only a last resort.
func newVerifier(ctx context.Context, cfg *config.Config) (middleware.Verifier, error) {
	if cfg.Keycloak.URL != "" {
		issuer := oidc.Issuer(cfg.Keycloak.URL, cfg.Keycloak.Realm)
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err == nil {
			logger.Infof("auth: keycloak issuer %s", issuer)
			return ver, nil
		}
		if !cfg.Keycloak.AllowInsecure && cfg.JWT.Secret == "" {
			return nil, fmt.Errorf("oidc verifier: %w", err)
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.JWT.Secret != "" {
		ver, err := tokens.NewVerifier(cfg.JWT.Secret)
		if err != nil {
			return nil, err
		}
		logger.Infof("auth: HS256 shared secret")
		return ver, nil
	}
	if cfg.Keycloak.AllowInsecure {
		logger.Warn("enabling insecure token verifier (integration mode)")
		return oidc.NewInsecureVerifier(), nil
	}
	return nil, nil
}
