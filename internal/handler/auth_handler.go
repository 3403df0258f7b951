package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"banking-api/internal/auth"
	"banking-api/internal/domain"
	"banking-api/internal/errors"
	"banking-api/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := decodeFields(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	req := LoginRequest{
		Email:    body.String("email"),
		Password: body.String("password"),
	}
	if err := body.check(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		"message": fmt.Sprintf("Logged in as %s", user.Name),
		"data": envelope{
			"user":  user,
			"token": token,
		},
	})
}

func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		"message": "Authenticated",
		"user":    user,
	})
}

func (h *AuthHandler) authenticate(r *http.Request) (*domain.User, error) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, errors.ErrUnauthorized
	}
	return h.authService.Authenticate(r.Context(), token)
}

type userContextKey struct{}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller on the request context.
func (h *AuthHandler) RequireAuth() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := h.authenticate(r)
			if err != nil {
				writeError(w, h.logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey{}, user)))
		})
	}
}

// CurrentUser returns the caller set by RequireAuth, if any.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*domain.User)
	return user, ok
}
