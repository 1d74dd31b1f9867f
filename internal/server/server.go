package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pbms/apiserver/config"
	"github.com/pbms/apiserver/internal/db"
	"github.com/pbms/apiserver/internal/handlers"
	"github.com/pbms/apiserver/internal/logging"
	"github.com/pbms/apiserver/internal/metrics"
	"github.com/pbms/apiserver/internal/mq"
	"github.com/pbms/apiserver/internal/services"
	"github.com/pbms/apiserver/internal/storage"
	"github.com/pbms/apiserver/internal/store"
)

// Server wraps the HTTP server, router, and shared resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	logger     *zap.Logger
	events     *mq.Events
}

// New constructs a fully wired Server from the given configuration.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := logging.New()
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	receipts, err := newReceiptStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	events, err := newEventBus(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	projectRepo := store.NewProjectRepository(dbConn)
	teamRepo := store.NewTeamRepository(dbConn)
	categoryRepo := store.NewCategoryRepository(dbConn)
	expenseRepo := store.NewExpenseRepository(dbConn)
	versionRepo := store.NewBudgetVersionRepository(dbConn)
	milestoneRepo := store.NewMilestoneRepository(dbConn)
	unitRepo := store.NewBusinessUnitRepository(dbConn)
	notificationRepo := store.NewNotificationRepository(dbConn)
	activityRepo := store.NewActivityLogRepository(dbConn)

	userService := services.NewUserService(userRepo)
	projectService := services.NewProjectService(projectRepo)
	teamService := services.NewTeamService(teamRepo)
	categoryService := services.NewCategoryService(categoryRepo)
	expenseService := services.NewExpenseService(expenseRepo, receipts)
	versionService := services.NewBudgetVersionService(versionRepo)
	milestoneService := services.NewMilestoneService(milestoneRepo)
	unitService := services.NewBusinessUnitService(unitRepo)
	notificationService := services.NewNotificationService(notificationRepo, events, logger)
	activityService := services.NewActivityService(activityRepo, logger)
	analyticsService := services.NewAnalyticsService(projectRepo)

	promMetrics := metrics.New()

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.RequestLogger(logger),
		promMetrics.Middleware,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", promMetrics.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
	})
	router.Route("/api", func(r chi.Router) {
		r.Use(handlers.RequireAuth(jwtSecret))

		r.Route("/projects", func(r chi.Router) {
			handlers.ProjectRouter(r, projectService, activityService)
		})
		r.Route("/project-teams", func(r chi.Router) {
			handlers.TeamRouter(r, teamService, projectService, notificationService, activityService)
		})
		r.Route("/budget-categories", func(r chi.Router) {
			handlers.CategoryRouter(r, categoryService, projectService)
		})
		r.Route("/expenses", func(r chi.Router) {
			handlers.ExpenseRouter(r, expenseService, projectService, notificationService, activityService)
		})
		r.Route("/budget-versions", func(r chi.Router) {
			handlers.BudgetVersionRouter(r, versionService, projectService, notificationService)
		})
		r.Route("/milestones", func(r chi.Router) {
			handlers.MilestoneRouter(r, milestoneService, projectService)
		})
		r.Route("/business-units", func(r chi.Router) {
			handlers.BusinessUnitRouter(r, unitService, activityService)
		})
		r.Route("/notifications", func(r chi.Router) {
			handlers.NotificationRouter(r, notificationService)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userService, activityService)
		})
		r.Route("/activity", func(r chi.Router) {
			handlers.ActivityRouter(r, activityService)
		})
		r.Route("/analytics", func(r chi.Router) {
			handlers.AnalyticsRouter(r, analyticsService)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		logger:     logger,
		events:     events,
	}, nil
}

// newReceiptStorage builds the configured object-storage wrapper, or
// returns nil when no backend is configured.
func newReceiptStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		s := storage.NewStorage(client)
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newEventBus builds the configured message-queue wrapper, or returns
// nil when no backend is configured.
func newEventBus(ctx context.Context, cfg config.Config) (*mq.Events, error) {
	switch cfg.MQ.Backend {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.NewEvents(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.NewEvents(client), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown and releases shared resources.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	_ = s.logger.Sync()
	return s.httpServer.Close()
}
