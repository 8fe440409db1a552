package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/manuscript-be/internal/api/handlers"
	mw "github.com/isdelr/manuscript-be/internal/api/middleware"
	"github.com/isdelr/manuscript-be/internal/auth"
	"github.com/isdelr/manuscript-be/internal/config"
	"github.com/isdelr/manuscript-be/internal/services"
	"github.com/isdelr/manuscript-be/internal/storage"
	"github.com/isdelr/manuscript-be/internal/websocket"
)

// Deps bundles what the router needs to build its handlers.
type Deps struct {
	Tokens      *auth.TokenManager
	Hub         *websocket.Hub
	DB          handlers.Pinger
	Blobs       storage.Store
	DiskPath    string // content directory for local blobs, empty otherwise
	Users       services.UserServiceProvider
	Manuscripts services.ManuscriptServiceProvider
	Contacts    services.ContactServiceProvider
	Events      services.EventServiceProvider
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger)
	r.Use(middleware.Recoverer)

	allowAny := len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*"
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: !allowAny,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(d.Users, d.Tokens)
	manuscriptHandler := handlers.NewManuscriptHandler(d.Manuscripts, cfg.MaxUploadBytes)
	contactHandler := handlers.NewContactHandler(d.Contacts)
	eventHandler := handlers.NewEventHandler(d.Events)
	uploadsHandler := handlers.NewUploadsHandler(d.Blobs)
	healthHandler := handlers.NewHealthHandler(d.DB, d.DiskPath)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, cfg.CORSAllowedOrigins)

	requireAuth := d.Tokens.JWTMiddleware()
	loginLimiter := mw.NewRateLimiter(cfg.LoginRatePerMinute)

	// Stored files, streamed without the API timeout.
	r.Get(strings.TrimSuffix(services.UploadsURLPrefix, "/")+"/{name}", uploadsHandler.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)

		// Long-lived connection; kept out of the timeout group.
		r.With(requireAuth).Get("/ws", wsHandler.Serve)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))

			r.Group(func(r chi.Router) {
				r.Use(loginLimiter.Handler)
				r.Post("/register", userHandler.Register)
				r.Post("/login", userHandler.Login)
			})

			r.Route("/contact", func(r chi.Router) {
				r.Get("/", contactHandler.GetAll)
				r.Post("/", contactHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", contactHandler.Get)
					r.Put("/", contactHandler.Update)
					r.Delete("/", contactHandler.Delete)
				})
			})

			r.Group(func(r chi.Router) {
				if cfg.ManuscriptsRequireAuth {
					r.Use(requireAuth)
				}
				r.Post("/submit", manuscriptHandler.Submit)
				r.Route("/manuscripts", func(r chi.Router) {
					r.Get("/", manuscriptHandler.GetAll)
					r.Get("/{id}", manuscriptHandler.Get)
					r.Delete("/{id}", manuscriptHandler.Delete)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", userHandler.GetMe)
				r.Get("/events", eventHandler.GetRecent)
				r.Route("/users", func(r chi.Router) {
					r.Get("/", userHandler.GetAll)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", userHandler.Get)
						r.Put("/", userHandler.Update)
						r.Delete("/", userHandler.Delete)
					})
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Not found"}` + "\n"))
	})

	return r
}
