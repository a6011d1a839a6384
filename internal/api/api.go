package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/seisanbot/internal/config"
	"github.com/susu3304/seisanbot/internal/db"
	"github.com/susu3304/seisanbot/internal/solver"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const discordAPIBase = "https://discord.com/api"

// Store is the settlement history the API reads.
type Store interface {
	ListSettlements(ctx context.Context, guildID int64) ([]db.Settlement, error)
	GetSettlement(ctx context.Context, guildID, id int64) (*db.Settlement, error)
}

type API struct {
	router      *mux.Router
	store       Store
	solver      solver.Solver
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	validate    *validator.Validate
	logger      *zap.Logger
	discordBase string
	server      *http.Server
}

func New(cfg *config.Config, store Store, sv solver.Solver, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &API{
		router:      mux.NewRouter(),
		store:       store,
		solver:      sv,
		config:      cfg,
		jwtSecret:   []byte(cfg.JWTSecret),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.Named("api"),
		discordBase: discordAPIBase,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	api.server = &http.Server{
		Addr:              cfg.WebBind,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return api
}

func (a *API) setupRoutes() {
	a.router.Use(a.logRequests)

	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/settle", a.handleSettle).Methods("POST")

	// Web interface
	a.router.HandleFunc("/", a.handleWebInterface).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/user/guilds", a.handleUserGuilds).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/settlements", a.handleListSettlements).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/settlements/{id}", a.handleGetSettlement).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	// When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (a *API) Start() error {
	a.logger.Info("API server listening", zap.String("addr", "http://"+a.config.WebBind))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server started by Start, waiting for in-flight
// requests until ctx ends.
func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
