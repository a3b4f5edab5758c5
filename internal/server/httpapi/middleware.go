package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jatinpathania/University-assignment-approval-system/internal/ctxdata"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func NewLoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID, err := uuid.NewV7()
			if err != nil {
				traceID = uuid.New()
			}

			ctx := ctxdata.WithTraceID(r.Context(), traceID.String())
			r = r.WithContext(ctx)
			w.Header().Set("X-Trace-Id", traceID.String())

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			log.Info("request completed",
				zap.String("trace_id", traceID.String()),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// TokenVerifier validates a bearer token and returns the embedded
// user id and role.
type TokenVerifier interface {
	VerifyToken(token string) (userID, role string, err error)
}

// NewAuthMiddleware resolves the bearer token into request context
// identity. Handlers downstream trust ctxdata, never headers.
func NewAuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeErrorJSON(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			userID, role, err := verifier.VerifyToken(token)
			if err != nil {
				writeErrorJSON(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := ctxdata.WithUserID(r.Context(), userID)
			ctx = ctxdata.WithUserRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
