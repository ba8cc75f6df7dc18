package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/envelope"
)

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(h.recoverer)
	r.Use(h.withTimeout)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.write(w, r, envelope.Fail(envelope.OpPing, common.ErrorNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		env := envelope.Fail(envelope.OpPing, common.ErrorBadRequest)
		env.StatusCode = http.StatusMethodNotAllowed
		env.Message = "Method not allowed"
		h.write(w, r, env)
	})

	r.Get("/healthz", h.Healthz)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(h.authenticate)
			r.Get("/", h.Me)
			r.Post("/avatar", h.AvatarUpload)
		})
	})

	return r
}
