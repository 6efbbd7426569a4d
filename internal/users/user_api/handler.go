package user_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	users "ms-booking/internal/users/service"
	"ms-booking/internal/utils"
)

type Handler struct {
	Users  *users.Service
	Logger *logger.Logger
}

func NewHandler(userService *users.Service, log *logger.Logger) *Handler {
	return &Handler{Users: userService, Logger: log}
}

func (h *Handler) Register(r chi.Router) {
	r.With(auth.Require(auth.Authenticated)).Get("/users/me/", h.Me)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/users/", h.ListUsers)
		r.Delete("/users/{id}/", h.DeleteUser)
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Current user", p.User))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.List(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListUsers: %v", err))
		utils.WriteError(w, "Failed to list users", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Users retrieved", list))
}

// DeleteUser refuses with 409 while the user owns events or holds bookings.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, "Invalid user id", err)
		return
	}

	if err := h.Users.Delete(r.Context(), id); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("DeleteUser: id=%d: %v", id, err))
		utils.WriteError(w, "Failed to delete user", err)
		return
	}
	h.Logger.LogSecurity("USER_DELETED", fmt.Sprintf("user %d deleted", id))
	w.WriteHeader(http.StatusNoContent)
}
