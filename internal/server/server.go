// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "socialnet/docs" // swagger docs
	"socialnet/internal/bootstrap"
	"socialnet/internal/cache"
	"socialnet/internal/config"
	"socialnet/internal/featureflags"
	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/notifications"
	"socialnet/internal/repository"
	"socialnet/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	sweepCron      *cron.Cron
	store          repository.Store
	notifier       *notifications.Notifier
	chatHub        *notifications.ChatHub
	featureFlags   *featureflags.Manager
	limits         *middleware.RateLimiter
	userService    *service.UserService
	planService    *service.PlanService
	socialService  *service.SocialService
	postService    *service.PostService
	chatService    *service.ChatService
	billingService *service.BillingService
	adminService   *service.AdminService
}

// NewServer initializes the runtime (database, Redis, admin account) and
// builds a server on it.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{FixturePath: cfg.SeedFixture})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, revocation and pub/sub are then disabled
// and checkout codes live in process memory.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cache.GetClient() != redisClient {
		cache.SetClient(redisClient)
	}

	store := repository.NewStore(db)
	notifier := notifications.NewNotifier(redisClient)
	chatHub := notifications.NewChatHub()
	plans := service.NewPlanService(store)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("socialnet-api"),
		store:          store,
		notifier:       notifier,
		chatHub:        chatHub,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		limits:         middleware.NewRateLimiter(redisClient, cfg.Env),
		planService:    plans,
		userService:    service.NewUserService(store, plans),
		socialService:  service.NewSocialService(store),
		postService:    service.NewPostService(store),
		chatService:    service.NewChatService(store, notifications.NewChatPublisher(notifier, chatHub)),
		billingService: service.NewBillingService(store, service.NewCodeStore(redisClient), plans, cfg.CheckoutTTL),
		adminService:   service.NewAdminService(store, plans),
	}
	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.limits.Enabled()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Public routes
	api.Post("/register", s.limits.Limit(5, 10*time.Minute, "register"), s.Register)
	api.Post("/login", s.limits.Limit(10, 5*time.Minute, "login"), s.Login)
	api.Get("/users", s.GetAllUsers)
	api.Get("/posts", s.GetPosts)
	api.Get("/plans", s.GetPlans)

	auth := s.AuthRequired()

	api.Post("/logout", auth, s.Logout)
	api.Get("/me", auth, s.GetMe)

	// /users/me must be registered before /users/:id
	api.Patch("/users/me", auth, s.UpdateMyProfile)
	api.Post("/users/:id/follow", auth, s.ToggleFollow)
	api.Get("/users/:id", s.GetUserProfile)

	posts := api.Group("/posts", auth)
	posts.Post("/", s.limits.Limit(10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/comment", s.limits.Limit(20, time.Minute, "create_comment"), s.CommentPost)

	conversations := api.Group("/conversations", auth)
	conversations.Get("/", s.GetConversations)
	conversations.Post("/", s.CreateConversation)
	conversations.Post("/:id/messages", s.limits.Limit(30, time.Minute, "send_chat"), s.SendMessage)

	billing := api.Group("/billing", auth)
	billing.Post("/checkout", s.limits.Limit(10, 10*time.Minute, "checkout"), s.Checkout)
	billing.Post("/confirm", s.limits.Limit(10, 10*time.Minute, "confirm"), s.ConfirmCheckout)

	api.Post("/ws/ticket", auth, s.IssueWSTicket)
	api.Get("/ws/chat", auth, s.WebSocketChatHandler())

	admin := api.Group("/admin", auth, s.AdminRequired())
	admin.Patch("/users/:id", s.AdminSetPlan)
	admin.Delete("/users/:id", s.AdminDeleteUser)
	admin.Delete("/posts/:id", s.AdminDeletePost)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and, when configured, Redis answer.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds a Fiber app with the server's middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "socialnet API",
		BodyLimit: 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			return respondServiceError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// StartBackground wires the chat hub to Redis and starts the plan sweeper.
// Both stop when Shutdown is called.
func (s *Server) StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if s.notifier.Enabled() {
		go func() {
			if err := s.chatHub.StartWiring(ctx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start chat hub wiring",
					slog.String("hub", s.chatHub.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	sweepEnabled := func() bool {
		return s.featureFlags.Global(featureflags.PlanSweep)
	}
	if spec := s.config.PlanSweepSchedule; spec != "" {
		c, err := s.planService.ScheduleSweeper(ctx, spec, sweepEnabled)
		if err != nil {
			middleware.Logger.Error("plan sweep schedule rejected", slog.String("error", err.Error()))
			return
		}
		s.sweepCron = c
		return
	}
	go s.planService.RunSweeper(ctx, s.config.PlanSweepInterval, sweepEnabled)
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	s.StartBackground()

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	if s.sweepCron != nil {
		select {
		case <-s.sweepCron.Stop().Done():
		case <-ctx.Done():
		}
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.chatHub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub",
			slog.String("hub", s.chatHub.Name()),
			slog.String("error", err.Error()),
		)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
