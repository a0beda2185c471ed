package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"debtster-dashboard/internal/domain"
	"debtster-dashboard/internal/logger"

	"go.uber.org/zap"
)

type TokenFinder interface {
	FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error)
}

type ctxKey struct{}

var ErrNoSession = errors.New("session not found in context")

// SanctumMiddleware resolves the bearer token (or ?token= for websocket
// clients) into a domain.Session stored on the request context.
func SanctumMiddleware(tokens TokenFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			var pat *domain.PersonalAccessToken
			var storeErr error
			for _, plain := range candidateTokens(r) {
				p, err := tokens.FindTokenByPlainToken(r.Context(), plain)
				if err != nil {
					if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded) {
						storeErr = err
						break
					}
					log.Debug("token lookup failed", zap.Error(err))
					continue
				}
				pat = p
				break
			}

			if storeErr != nil {
				log.Error("token lookup failed", zap.Error(storeErr))
				writeError(w, http.StatusServiceUnavailable, "record store unavailable, try again later")
				return
			}
			if pat == nil {
				unauthorized(w, "Unauthorized")
				return
			}

			session := domain.Session{
				UserID:    pat.UserID,
				TokenID:   pat.ID,
				Abilities: pat.Abilities,
				ExpiresAt: pat.ExpiresAt,
			}
			if session.Expired(time.Now()) {
				unauthorized(w, "Token expired")
				return
			}

			ctx := WithSession(r.Context(), session)
			ctx = logger.WithContext(ctx, log.With(zap.Int64("user_id", session.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func candidateTokens(r *http.Request) []string {
	var out []string
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			out = append(out, t)
		}
	}
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		out = append(out, t)
	}
	return out
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"error_code":%d,"status":"error","message":%q,"data":null}`, code, msg)
}

func WithSession(ctx context.Context, s domain.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func SessionFromContext(ctx context.Context) (domain.Session, error) {
	s, ok := ctx.Value(ctxKey{}).(domain.Session)
	if !ok {
		return domain.Session{}, ErrNoSession
	}
	return s, nil
}

func GetUserID(ctx context.Context) (int64, error) {
	s, err := SessionFromContext(ctx)
	if err != nil {
		return 0, err
	}
	return s.UserID, nil
}
