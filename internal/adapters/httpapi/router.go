package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig holds the transport settings of the API.
type RouterConfig struct {
	JWTSecret      []byte
	InternalAPIKey string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// NewRouter wires the engine's HTTP surface. metricsHandler may be nil.
func NewRouter(h *Handlers, cfg RouterConfig, observer RequestObserver, metricsHandler http.Handler, baseLogger *zerolog.Logger) http.Handler {
	log := baseLogger.With().Str("component", "http").Logger()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log, observer))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/bank-accounts/confirm", h.ConfirmBankChange)

		r.Group(func(r chi.Router) {
			r.Use(SessionAuth(cfg.JWTSecret))

			r.Route("/organizers/{organizerID}", func(r chi.Router) {
				r.Get("/eligibility", h.Eligibility)
				r.Get("/bank-accounts", h.ListBankAccounts)
				r.Post("/bank-accounts", h.AddBankAccount)
				r.Get("/bank-accounts/changes", h.ListBankChanges)
				r.Patch("/bank-accounts/{accountID}", h.UpdateBankAccount)
				r.Delete("/bank-accounts/{accountID}", h.RemoveBankAccount)
				r.Post("/bank-accounts/{accountID}/resend-confirmation", h.ResendConfirmation)
			})

			r.Post("/otp", h.IssueOTP)

			r.Post("/payouts", h.RequestPayout)
			r.Get("/payouts/pending", h.ListPendingApprovals)
			r.Get("/payouts/{actionID}", h.GetPayout)
			r.Post("/payouts/{actionID}/approve", h.ApprovePayout)
			r.Post("/payouts/{actionID}/cancel", h.CancelPayout)
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAuth(cfg.InternalAPIKey))
		r.Post("/bank-accounts/{accountID}/verify", h.VerifyBankAccount)
	})

	return r
}
