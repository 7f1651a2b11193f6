package server

import (
	"log/slog"

	"backend-meetspot/internal/auth"
	"backend-meetspot/internal/config"
	"backend-meetspot/internal/db"
	"backend-meetspot/internal/location"
	"backend-meetspot/internal/metrics"
	"backend-meetspot/internal/offer"
	"backend-meetspot/internal/review"
	"backend-meetspot/internal/storage"
	"backend-meetspot/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Stream  *stream.Hub
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *slog.Logger) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      pool,
		Redis:   redisClient,
		Stream:  stream.NewHub(redisClient, log),
		Metrics: metrics.New(reg),
		Log:     log,
	}

	registerRoutes(s)
	return s
}

// Close releases background resources owned by the server.
func (s *Server) Close() {
	s.Stream.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", s.Metrics.Handler())

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	tx := db.NewTxManager(s.DB)

	storageSvc := storage.NewService(s.DB, s.Cfg.StorageBaseURL, s.Cfg.StorageUploadTTL)
	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB, s.Cfg.Locations.MinTrustToAdd).WithAvatars(storageSvc)
	locationStore := location.NewStore(s.DB)
	locationSvc := location.NewService(locationStore, tx, authSvc, s.Cfg.Locations, s.Log, s.Metrics)
	reviewSvc := review.NewService(review.NewStore(s.DB), locationStore, tx, s.Log, s.Metrics)
	offerSvc := offer.NewService(offer.NewStore(s.DB), tx, locationSvc, authSvc, s.Stream, s.Cfg.Offers, s.Log, s.Metrics)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc, jwtMiddleware)
	review.RegisterRoutes(s.App.Group("/locations/:location_id/reviews"), reviewSvc, jwtMiddleware)
	location.RegisterRoutes(s.App.Group("/locations"), locationSvc, jwtMiddleware)
	offer.RegisterRoutes(s.App.Group("/offers"), offerSvc, jwtMiddleware)
	storage.RegisterRoutes(s.App.Group("/storage"), storageSvc, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)
}
