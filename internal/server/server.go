package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brandpick/apiserver/config"
	"github.com/brandpick/apiserver/internal/handlers"
	"github.com/brandpick/apiserver/internal/mq"
	"github.com/brandpick/apiserver/internal/services"
	"github.com/brandpick/apiserver/internal/storage"
	"github.com/brandpick/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// Services holds the use-cases the HTTP API exposes.
type Services struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Products  *services.ProductService
	Campaigns *services.CampaignService
	OAuth     map[string]services.OAuthProvider
}

// Server wraps the HTTP server and its closers.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	closers    []func(ctx context.Context) error
}

// New connects the configured backends and builds the HTTP server.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	s := &Server{logger: logger}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, repos.close)

	images, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	var imageStore services.ImageStore
	if images != nil {
		imageStore = images
		s.closers = append(s.closers, func(context.Context) error { return images.Close() })
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithStrictProducts(cfg.Campaign.RequireAllProducts),
	}
	if queue != nil {
		opts = append(opts, services.WithEventPublisher(queue))
		s.closers = append(s.closers, func(context.Context) error { return queue.Close() })
	}

	svc := newServices(repos, imageStore, cfg, opts...)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewRouter(svc, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		zap.String("driver", cfg.Driver),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("mq", cfg.MQ.Backend),
		zap.Int("port", port),
	)
	return s, nil
}

func newServices(repos repositories, images services.ImageStore, cfg config.Config, opts ...services.Option) Services {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return Services{
		Auth:      services.NewAuthService(repos.users, repos.refreshTokens, repos.confirmTokens, cfg.Auth, opts...),
		Users:     services.NewUserService(repos.users),
		Products:  services.NewProductService(repos.products, images, opts...),
		Campaigns: services.NewCampaignService(repos.users, repos.products, repos.campaigns, opts...),
		OAuth: map[string]services.OAuthProvider{
			services.ProviderFacebook: services.NewFacebookProvider(cfg.OAuth.FacebookURL, httpClient),
			services.ProviderGoogle:   services.NewGoogleProvider(cfg.OAuth.GoogleURL, httpClient),
		},
	}
}

// NewRouter mounts every API route on a fresh chi router.
func NewRouter(svc Services, logger *zap.Logger) *chi.Mux {
	authorizer := handlers.NewAuthorizer(svc.Auth, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	router.Get("/status", handlers.Status)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, handlers.NewAuthHandler(svc.Auth, svc.OAuth, logger))
	})
	router.Route("/brands", func(r chi.Router) {
		r.Use(authorizer.Require(types.RoleBrand))
		r.Route("/product", func(r chi.Router) {
			handlers.ProductRouter(r, handlers.NewProductHandler(svc.Products, logger))
		})
		r.Route("/profile", func(r chi.Router) {
			handlers.ProfileRouter(r, handlers.NewProfileHandler(svc.Users, logger))
		})
		r.Route("/dashboard", func(r chi.Router) {
			handlers.DashboardRouter(r, handlers.NewDashboardHandler(svc.Campaigns, logger))
		})
	})
	router.Route("/pickers", func(r chi.Router) {
		r.Use(authorizer.Require(types.RolePicker))
		handlers.PickerRouter(r, handlers.NewPickerHandler(svc.Campaigns, svc.Users, logger))
	})
	return router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close(ctx)
	return err
}

func (s *Server) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.logger.Warn("close backend", zap.Error(err))
		}
	}
	s.closers = nil
}
