//	@title			Campfolio API
//	@version		1.0
//	@description	Portfolio media storage service.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/campfolio/service/internal/cache"
	"github.com/campfolio/service/internal/config"
	"github.com/campfolio/service/internal/db"
	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/media"
	appMiddleware "github.com/campfolio/service/internal/middleware"
	"github.com/campfolio/service/internal/reconcile"
	"github.com/campfolio/service/internal/settings"
	"github.com/campfolio/service/internal/storage"
	"github.com/campfolio/service/internal/thumbnail"
	"github.com/campfolio/service/internal/thumbnail/webpenc"
	"github.com/campfolio/service/internal/user"

	_ "github.com/campfolio/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		log.Fatal("database migration failed", "error", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warn("redis unavailable, caching in memory", "error", err)
	} else {
		defer rdb.Close()
	}
	appCache := cache.New(rdb, log)

	// Wire dependencies: repository → service → handler
	settingsRepo := settings.NewRepository(pool, settings.Defaults(cfg))
	files := storage.NewStore(log, cfg.COSEndpointSuffix)
	deriver := thumbnail.NewDeriver(webpenc.Encoder{}, storage.LocalURLPrefix, log)

	mediaRepo := media.NewRepository(pool)
	mediaSvc := media.NewService(mediaRepo, files, deriver, appCache, cfg.CacheTTL, log)
	mediaHandler := media.NewHandler(mediaSvc, settingsRepo, log)

	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo, files, log)
	userHandler := user.NewHandler(userSvc, settingsRepo, log)

	runner := reconcile.NewRunner(reconcile.New(log), settingsRepo, log, mediaSvc, userSvc)
	reconcileHandler := reconcile.NewHandler(runner, log)
	if cfg.ReconcileInterval > 0 {
		go runner.Start(ctx, cfg.ReconcileInterval)
	}

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Handle(storage.LocalURLPrefix+"/*", storage.FileServer(settingsRepo))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public reads; a valid token still identifies owners and admins.
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.OptionalAuth(cfg.JWTSecret))
			r.Get("/gallery", mediaHandler.Gallery)
			r.Get("/portfolios/{id}", mediaHandler.GetCollection)
		})

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Post("/portfolios", mediaHandler.CreateCollection)
			r.Delete("/portfolios/{id}", mediaHandler.DeleteCollection)
			r.Patch("/portfolios/{id}/cover", mediaHandler.SetCover)
			r.Post("/portfolios/{id}/media", mediaHandler.Upload)
			r.Delete("/media/{id}", mediaHandler.DeleteAsset)

			r.Get("/users/me", userHandler.GetMe)
			r.Post("/users/me/avatar", userHandler.UploadAvatar)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Use(appMiddleware.RequireRole(media.RoleAdmin))
			r.Post("/portfolios/batch-delete", mediaHandler.BatchDelete)
			r.Patch("/portfolios/{id}/review", mediaHandler.Review)
			r.Post("/storage/reconcile", reconcileHandler.Run)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv)
		log.Info("swagger UI available", "url", "http://localhost:"+cfg.Port+"/swagger/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
	// Let in-flight collection file cleanup finish.
	mediaSvc.Wait()

	log.Info("server stopped")
}
