package server

import (
	"net/http"

	"backend-trpreport/internal/auth"
	"backend-trpreport/internal/config"
	"backend-trpreport/internal/deck"
	"backend-trpreport/internal/maprender"
	"backend-trpreport/internal/pipeline"
	"backend-trpreport/internal/report"
	"backend-trpreport/internal/session"
	"backend-trpreport/internal/shared/apperr"
	"backend-trpreport/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Sessions *session.Store
	Pipeline *pipeline.Orchestrator
	Log      *zap.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.ErrorHandler,
		BodyLimit:    cfg.MaxUploadMB * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Stream:   stream.NewHub(redisClient, log.Named("stream")),
		Sessions: session.NewStore(db),
		Log:      log,
	}

	s.Pipeline = pipeline.New(pipeline.Options{
		ScratchDir:   cfg.ScratchDir,
		KeepScratch:  cfg.KeepScratch,
		DedupEnabled: cfg.DedupEnabled,
	}, pipeline.Deps{
		Gateway: s.Sessions,
		Renderer: maprender.New(maprender.Config{
			BaseURL:      cfg.MapsBaseURL,
			APIKey:       cfg.MapsAPIKey,
			Timeout:      cfg.MapsTimeout,
			GeneratedDir: cfg.GeneratedDir,
		}, &http.Client{}, log.Named("maprender")),
		Composer: deck.NewComposer(cfg.OutputDir, log.Named("deck")),
		Notifier: s.Stream,
		Index:    report.NewIndex(db, cfg.OutputDir),
		Log:      log,
	})

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	api := s.App.Group("/api")

	auth.RegisterRoutes(api.Group("/auth"), jwtMiddleware)
	report.RegisterRoutes(api, report.NewHandler(s.Pipeline, s.Cfg.UploadDir, s.Cfg.OutputDir, s.Log.Named("report")), jwtMiddleware)
	session.RegisterRoutes(api.Group("/sessions"), s.Sessions, jwtMiddleware, auth.RequirePermission(auth.PermViewFiles))
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
