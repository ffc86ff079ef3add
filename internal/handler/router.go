package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"chat-assistant-server/internal/domain"
	"chat-assistant-server/internal/metrics"
)

// RouterOptions carries the cross-cutting pieces of the HTTP stack.
type RouterOptions struct {
	Logger         domain.Logger
	Metrics        *metrics.Metrics
	RateLimiter    *RateLimiter
	AllowedOrigins []string
	// Admin routes are mounted only when set.
	Admin *AdminHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	authHandler *AuthHandler,
	chatHandler *ChatHandler,
	premiumHandler *PremiumHandler,
	accountHandler *AccountHandler,
	authMiddleware func(http.Handler) http.Handler,
	opts RouterOptions,
) http.Handler {
	router := mux.NewRouter()
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "chat-assistant-server"})
	}).Methods(http.MethodGet)

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	// Protected routes (require authentication)
	protected := router.PathPrefix("/api/v1").Subrouter()
	protected.Use(authMiddleware)
	if opts.RateLimiter != nil {
		protected.Use(opts.RateLimiter.Middleware)
	}

	protected.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	protected.HandleFunc("/auth/validate", authHandler.ValidateToken).Methods(http.MethodGet)

	protected.HandleFunc("/messages", chatHandler.SendMessage).Methods(http.MethodPost)
	protected.HandleFunc("/messages", chatHandler.GetMessages).Methods(http.MethodGet)

	protected.HandleFunc("/subscribe", premiumHandler.Subscribe).Methods(http.MethodPost)
	protected.HandleFunc("/promo", premiumHandler.RedeemPromo).Methods(http.MethodPost)

	protected.HandleFunc("/account", accountHandler.GetAccount).Methods(http.MethodGet)

	if opts.Admin != nil {
		admin := router.PathPrefix("/admin").Subrouter()
		admin.Use(opts.Admin.RequireSecret)
		admin.HandleFunc("/accounts/{id}", opts.Admin.GetAccount).Methods(http.MethodGet)
		admin.HandleFunc("/expiry-sweep", opts.Admin.RunExpirySweep).Methods(http.MethodPost)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	var h http.Handler = router
	if opts.Logger != nil {
		h = AccessLog(opts.Logger)(h)
	}
	return c.Handler(h)
}
