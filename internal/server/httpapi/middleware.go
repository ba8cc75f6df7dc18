package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/envelope"
	"github.com/go-chi/chi/v5/middleware"
)

// authenticate admits requests carrying a valid access token.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ParseBearer(r.Header.Get(common.AuthorizationHeaderName))
		if token == "" {
			h.write(w, r, envelope.Fail(envelope.OpMe, common.ErrorUnauthorized))
			return
		}

		claims, err := h.verifier.VerifyKind(token, auth.KindAccess)
		if err != nil {
			h.log.Debug(r.Context(), "access token rejected", "error", err)
			h.write(w, r, envelope.Fail(envelope.OpMe, common.ErrorUnauthorized))
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithAccountID(r.Context(), claims.AccountID())))
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.log.Info(r.Context(), "request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

// recoverer turns a panic into a 500 envelope.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.log.Error(r.Context(), "panic", "recovered", rec, "stack", string(debug.Stack()))
			h.write(w, r, envelope.Fail(envelope.OpPing, common.ErrorInternal))
		}()

		next.ServeHTTP(w, r)
	})
}

// withTimeout bounds the request context. Handlers observe the deadline
// through the services' context checks.
func (h *Handler) withTimeout(next http.Handler) http.Handler {
	if h.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
