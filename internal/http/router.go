package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"setlist/internal/auth"
	"setlist/internal/config"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Service *auth.Service
	Limiter auth.RateLimiter
	State   *auth.StateCodec
	Tokens  *auth.TokenIssuer
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, deps Dependencies, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrfHeaderName},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSecurityHeadersMiddleware(cfg.IsProduction()))
	r.Use(newSlogMiddleware(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	oauthHandler := NewOAuthHandler(deps.Service, deps.Limiter, deps.State, deps.Tokens, cfg, logger)
	sessionHandler := NewSessionHandler(deps.Service, deps.Tokens, cfg, logger)

	r.Get(callbackPath(cfg), oauthHandler.Callback)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/{provider}/signin", oauthHandler.SignIn)
		r.Post("/register", sessionHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(newSessionMiddleware(deps.Tokens, logger))
			r.Use(newCSRFMiddleware(logger))
			r.Get("/session", sessionHandler.Status)
			r.Post("/signout", sessionHandler.SignOut)
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}

func callbackPath(cfg config.Config) string {
	path := strings.TrimSpace(cfg.OAuthRedirectPath)
	if path == "" {
		return DefaultCallbackPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
