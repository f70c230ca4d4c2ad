package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/clients"
	"collateral-backend/internal/documents"
	"collateral-backend/internal/properties"
	"collateral-backend/internal/queue"
	"collateral-backend/internal/search"
	"collateral-backend/internal/services/health"
	"collateral-backend/internal/shared/auth"
	"collateral-backend/internal/shared/config"
	"collateral-backend/internal/shared/geo"
	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/server"
	"collateral-backend/internal/shared/server/middleware"
	"collateral-backend/internal/shared/server/upload"
	"collateral-backend/internal/shared/storage/db"
	"collateral-backend/internal/shared/storage/object"
	localstore "collateral-backend/internal/shared/storage/object/local"
	miniostore "collateral-backend/internal/shared/storage/object/minio"
	s3store "collateral-backend/internal/shared/storage/object/s3"
	"collateral-backend/internal/shared/telemetry"
	"collateral-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Store      object.BlobStore
	Queue      queue.Client
	Geocoder   geo.Geocoder
	Issuer     *auth.Issuer
	Reconciler *approval.Reconciler

	UsersRepo      users.Repo
	ClientsRepo    clients.Repo
	PropertiesRepo properties.Repo
	DocumentsRepo  documents.Repo

	UsersService      *users.Service
	ClientsService    *clients.Service
	PropertiesService *properties.Service
	DocumentsService  *documents.Service
	SearchService     *search.Service

	UsersHandler      *users.Handler
	ClientsHandler    *clients.Handler
	PropertiesHandler *properties.Handler
	DocumentsHandler  *documents.Handler
	SearchHandler     *search.Handler
}

// Build prepares every dependency and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	geocoder, err := buildGeocoder(cfg)
	if err != nil {
		return nil, err
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Queue:    queueClient,
		Geocoder: geocoder,
		Issuer:   issuer,
	}
	buildServices(app)

	if cfg.AdminUsername != "" {
		if err := app.UsersService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}

	deps := server.RouterDeps{
		Config:          cfg,
		Verifier:        issuer,
		Health:          health.NewService(pinger(sqlDB)),
		UserHandler:     app.UsersHandler,
		ClientHandler:   app.ClientsHandler,
		PropertyHandler: app.PropertiesHandler,
		DocumentHandler: app.DocumentsHandler,
		SearchHandler:   app.SearchHandler,
	}
	if local, ok := store.(*localstore.Store); ok {
		deps.LocalFilesDir = local.Dir()
		deps.LocalFilesPrefix = localFilesPrefix(localBaseURL(cfg))
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	if err := metrics.RegisterDB(sqlDB, "collateral"); err != nil {
		telemetry.Warn("bootstrap.db_metrics_failed", map[string]any{"error": err.Error()})
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.BlobStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:        cfg.AWSRegion,
			Bucket:        cfg.S3Bucket,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:      cfg.MinIO.Endpoint,
			AccessKey:     cfg.MinIO.AccessKey,
			SecretKey:     cfg.MinIO.SecretKey,
			UseSSL:        cfg.MinIO.UseSSL,
			Bucket:        cfg.MinIO.Bucket,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, localBaseURL(cfg)), nil
	}
}

// localBaseURL is where the router serves local objects from.
func localBaseURL(cfg config.Config) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	return "http://localhost" + server.Addr(cfg.Port) + "/files"
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.StatusQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.StatusQueueURL, cfg.AWSRegion)
}

func buildGeocoder(cfg config.Config) (geo.Geocoder, error) {
	if strings.TrimSpace(cfg.GoogleMapsAPIKey) == "" {
		telemetry.Info("bootstrap.geocoding_disabled", nil)
		return nil, nil
	}
	google, err := geo.NewGoogle(cfg.GoogleMapsAPIKey)
	if err != nil {
		return nil, err
	}
	return geo.NewCached(google, cfg.GeocodeCacheSize)
}

func buildServices(app *App) {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.ClientsRepo = &clients.PGRepo{DB: app.DB}
		app.PropertiesRepo = &properties.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.ClientsRepo = clients.NewMemoryRepo()
		app.PropertiesRepo = properties.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
	}

	limits := upload.Limits{MaxBytes: app.Config.MaxUploadBytes, MaxFiles: app.Config.MaxBatchFiles}

	app.Reconciler = &approval.Reconciler{
		Documents:  app.DocumentsRepo,
		Properties: app.PropertiesRepo,
		Queue:      app.Queue,
	}

	app.UsersService = users.NewService(app.UsersRepo, app.Issuer)
	app.ClientsService = clients.NewService(app.ClientsRepo, app.PropertiesRepo)
	app.PropertiesService = &properties.Service{
		Repo:      app.PropertiesRepo,
		Store:     app.Store,
		Clients:   app.ClientsService,
		Documents: app.DocumentsRepo,
		Geocoder:  app.Geocoder,
	}
	app.DocumentsService = &documents.Service{
		Store:      app.Store,
		Repo:       app.DocumentsRepo,
		Properties: app.PropertiesService,
		Reconciler: app.Reconciler,
	}
	app.SearchService = search.NewService(app.PropertiesRepo, app.ClientsService)

	loginLimiter := middleware.NewRateLimiter(middleware.RateLimitRule{
		Rate:  app.Config.LoginRatePerSec,
		Burst: app.Config.LoginBurst,
	}, nil)

	app.UsersHandler = users.NewHandler(app.UsersService, loginLimiter)
	app.ClientsHandler = clients.NewHandler(app.ClientsService)
	app.PropertiesHandler = properties.NewHandler(app.PropertiesService, app.Reconciler, limits)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService, limits)
	app.SearchHandler = search.NewHandler(app.SearchService)
}

// pinger avoids handing a typed nil *sql.DB to the health service.
func pinger(sqlDB *sql.DB) health.Pinger {
	if sqlDB == nil {
		return nil
	}
	return sqlDB
}

func localFilesPrefix(publicBaseURL string) string {
	u, err := url.Parse(publicBaseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/files"
	}
	return strings.TrimRight(u.Path, "/")
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
