package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"banking-api/internal/errors"
	"banking-api/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	logger      *slog.Logger
}

func NewUserHandler(userService *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

type RegisterRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	IdentityType   string `json:"identity_type" validate:"required,oneof=ID_CARD PASSPORT"`
	IdentityNumber string `json:"identity_number" validate:"required"`
	Address        string `json:"address" validate:"required"`
}

// Register serves both POST /users and POST /auth/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := decodeFields(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	req := RegisterRequest{
		Name:           body.String("name"),
		Email:          body.String("email"),
		Password:       body.String("password"),
		IdentityType:   body.String("identity_type"),
		IdentityNumber: body.String("identity_number"),
		Address:        body.String("address"),
	}
	if err := body.check(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterRequest(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, envelope{
		"message": fmt.Sprintf("Successfully added %s's data", user.Name),
		"user":    user,
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"users_data": users})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, h.logger, errors.NewAppErrorf(errors.UserNotFound, "User with id %s not found", rawID(r)))
		return
	}

	user, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"user": user})
}
