// Package server contains the HTTP and WebSocket handlers of the blog.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "quill/docs" // swagger docs
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/featureflags"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/repository"
	"quill/internal/service"
	"quill/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	renderer     Renderer
	media        storage.Backend
	featureFlags *featureflags.Manager
	notifier     *notifications.Notifier
	hub          *notifications.Hub

	feedService    *service.FeedService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	accountService *service.AccountService
}

// NewServer connects the database, redis and media backend described by cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)

	media, err := storage.NewBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("media backend: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, media)
}

// NewServerWithDeps creates a Server from already-initialized dependencies.
// redisClient may be nil; caching, rate limiting, revocation and the live
// feed then degrade to no-ops.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, media storage.Backend) (*Server, error) {
	if media == nil {
		return nil, errors.New("media backend is required")
	}

	cache.SetClient(redisClient)
	middleware.InitMiddleware(cfg, redisClient)

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("quill-api"),
		renderer:       JSONRenderer{},
		media:          media,
		featureFlags:   flags,
	}

	var publisher service.EventPublisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient, flags)
		s.hub = notifications.NewHub()
		publisher = s.notifier
	}

	s.feedService = service.NewFeedService(postRepo, groupRepo, userRepo, followRepo, media, cfg.PostsPerPage)
	s.postService = service.NewPostService(postRepo, groupRepo, commentRepo, followRepo, media, publisher, cfg.MaxUploadBytes())
	s.commentService = service.NewCommentService(commentRepo, postRepo)
	s.followService = service.NewFollowService(followRepo, userRepo, publisher)
	s.accountService = service.NewAccountService(userRepo, cfg.JWTSecret, redisClient)

	return s, nil
}

// SetRenderer replaces the default JSON view renderer.
func (s *Server) SetRenderer(r Renderer) {
	s.renderer = r
}

// NewApp builds the fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "quill",
		ErrorHandler: s.errorHandler,
		BodyLimit:    int(s.config.MaxUploadBytes()) + 1<<20,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New(helmet.Config{
		// Swagger UI loads inline scripts.
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data: https:; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'",
	}))
	app.Use(middleware.StructuredLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/ws") },
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	if s.config.MediaBackend == config.MediaBackendDisk {
		app.Static(s.config.MediaURL, s.config.MediaRoot, fiber.Static{ByteRange: true})
	}

	auth := app.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/login", s.LoginPage)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	indexTTL := time.Duration(0)
	if s.featureFlags.On(featureflags.PageCache) {
		indexTTL = s.config.IndexCacheTTL()
	}
	app.Get("/", cache.PageCache(service.IndexRoute, indexTTL), s.Index)
	app.Get("/group/:slug", s.GroupPosts)
	app.Get("/follow", middleware.AuthRequired, s.FollowIndex)

	createLimit := middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_post")
	app.Get("/create", middleware.AuthRequired, s.PostCreatePage)
	app.Post("/create", middleware.AuthRequired, createLimit, s.PostCreate)

	profile := app.Group("/profile/:username")
	profile.Get("/", middleware.OptionalAuth, s.Profile)
	followLimit := middleware.RateLimit(s.redis, 30, time.Minute, "follow")
	profile.Get("/follow", middleware.AuthRequired, followLimit, s.ProfileFollow)
	profile.Post("/follow", middleware.AuthRequired, followLimit, s.ProfileFollow)
	profile.Get("/unfollow", middleware.AuthRequired, s.ProfileUnfollow)
	profile.Post("/unfollow", middleware.AuthRequired, s.ProfileUnfollow)

	posts := app.Group("/posts/:id")
	posts.Get("/", s.PostDetail)
	posts.Get("/edit", middleware.AuthRequired, s.PostEditPage)
	posts.Post("/edit", middleware.AuthRequired, s.PostEdit)
	posts.Get("/delete", middleware.AuthRequired, s.PostDelete)
	posts.Post("/delete", middleware.AuthRequired, s.PostDelete)
	posts.Post("/comment", middleware.AuthRequired,
		middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.AddComment)

	if s.hub != nil && s.featureFlags.On(featureflags.LiveFeed) {
		app.Get("/ws", middleware.WebSocketAuthRequired, s.LiveFeedHandler())
	}

	app.Use(s.NotFound)
}

// errorHandler catches errors no handler turned into a response.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusNotFound {
			return s.renderNotFound(c)
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	if models.HasCode(err, models.CodeNotFound) {
		return s.renderNotFound(c)
	}

	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// Start serves HTTP on the configured port and blocks.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.hub != nil && s.notifier != nil {
		if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start live feed wiring", "error", err)
		}
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server, then closes websockets, redis and the
// database, in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down live feed hub", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", "error", err)
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
