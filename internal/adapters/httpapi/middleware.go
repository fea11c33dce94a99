package httpapi

import (
	"PayoutGuard/internal/core/domain"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionClaims is the access token body: sub is the profile id, sid the session id.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token. Used by the dev seed and tests; in
// production tokens are minted by the platform's auth service.
func IssueToken(secret []byte, userID, sessionID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, raw string) (uuid.UUID, uuid.UUID, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("bad subject: %w", err)
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("bad session id: %w", err)
	}
	return userID, sessionID, nil
}

// clientIP strips the port from RemoteAddr, which middleware.RealIP has already
// replaced with the forwarded address when one is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SessionAuth validates the bearer token and stores the caller as a domain.Actor.
func SessionAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Extract the token from "Bearer <token>"
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			userID, sessionID, err := parseToken(secret, tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := domain.WithActor(r.Context(), domain.Actor{
				UserID:    userID,
				SessionID: sessionID,
				IPAddress: clientIP(r),
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InternalAuth guards routes called by other platform services with a shared key.
func InternalAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestObserver records per-route latency.
type RequestObserver interface {
	ObserveHTTP(route, method string, code int, elapsed time.Duration)
}

// requestLogger logs one line per request and feeds the observer. The route is
// the chi pattern, not the raw path, so ids do not explode label cardinality.
func requestLogger(log zerolog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				elapsed := time.Since(start)
				route := "unmatched"
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				if observer != nil {
					observer.ObserveHTTP(route, r.Method, status, elapsed)
				}

				event := log.Info()
				if status >= http.StatusInternalServerError {
					event = log.Error()
				}
				event.
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("route", route).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", elapsed).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// actorFrom returns the authenticated caller; SessionAuth guarantees one on
// protected routes.
func actorFrom(r *http.Request) (domain.Actor, error) {
	actor, ok := domain.ActorFromContext(r.Context())
	if !ok {
		return domain.Actor{}, domain.ErrAuthenticationRequired
	}
	return actor, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.Reasonf(domain.ErrValidation, "%s is not a valid id", name)
	}
	return id, nil
}

var errEmptyBody = errors.New("request body is empty")
