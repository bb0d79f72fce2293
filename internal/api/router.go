package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"vidtube/internal/auth"
	"vidtube/internal/config"
	"vidtube/internal/db"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	uploader ObjectUploader,
) (*Server, error) {
	userRepo := db.NewUserRepository(database)
	subscriptionRepo := db.NewSubscriptionRepository(database)
	videoRepo := db.NewVideoRepository(database)

	tokenService := auth.NewTokenService(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	sessionService := auth.NewService(tokenService, userRepo)

	secureCookies := !cfg.Auth.InsecureCookies
	authHandler := NewAuthHandler(
		userRepo,
		sessionService,
		uploader,
		cfg.Auth.RefreshTokenTTL,
		secureCookies,
		cfg.Storage.UploadMaxBytes,
	)
	userHandler := NewUserHandler(userRepo, uploader, cfg.Storage.UploadMaxBytes)
	channelHandler := NewChannelHandler(userRepo, subscriptionRepo)
	historyHandler := NewHistoryHandler(videoRepo)
	videoHandler := NewVideoHandler(videoRepo, uploader, cfg.Storage.UploadMaxBytes)
	healthHandler := NewHealthHandler(database)

	authMiddleware := NewAuthMiddleware(tokenService, userRepo)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)

	// Multipart routes bound their own request bodies against the upload
	// limit; everything else gets a small JSON body cap.
	jsonBody := maxBodySizeMiddleware(1 << 20)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(httprate.LimitByIP(10, time.Minute)).Post("/register", authHandler.Register)
			r.With(httprate.LimitByIP(10, time.Minute), jsonBody).Post("/login", authHandler.Login)
			r.With(httprate.LimitByIP(30, time.Minute), jsonBody).Post("/refresh-token", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.With(jsonBody).Post("/logout", authHandler.Logout)
				r.With(jsonBody).Post("/change-password", authHandler.ChangePassword)
				r.Get("/current-user", userHandler.GetCurrentUser)
				r.With(jsonBody).Patch("/update-account", userHandler.UpdateAccount)
				r.Patch("/avatar", userHandler.UpdateAvatar)
				r.Patch("/cover-image", userHandler.UpdateCoverImage)
				r.Get("/c/{username}", channelHandler.GetChannelProfile)
				r.Get("/history", historyHandler.GetWatchHistory)
			})
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/c/{username}", channelHandler.ToggleSubscription)
		})

		r.Route("/videos", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/", videoHandler.Publish)
			r.Post("/{videoId}/view", videoHandler.RecordView)
		})
	})

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
