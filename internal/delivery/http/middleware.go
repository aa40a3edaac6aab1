package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/session"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

// withSession resolves the DID header into a session. Requests without the
// header continue anonymously; an unknown DID is rejected.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		did := r.Header.Get(DIDHeader)
		if did == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := s.auth.Resolve(r.Context(), did)
		if err != nil {
			s.logger.Debug("session rejected", zap.String("did", did), zap.Error(err))
			writeError(w, http.StatusUnauthorized, "unknown identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}
