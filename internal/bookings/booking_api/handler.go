package booking_api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/bookings/pass"
	bookings "ms-booking/internal/bookings/service"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
	"ms-booking/internal/views"
)

type Handler struct {
	Bookings *bookings.Service
	Passes   *pass.Generator
	Logger   *logger.Logger
}

func NewHandler(bookingService *bookings.Service, passes *pass.Generator, log *logger.Logger) *Handler {
	return &Handler{
		Bookings: bookingService,
		Passes:   passes,
		Logger:   log,
	}
}

// Register mounts the booking routes. The caller must have run auth.Middleware.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.Require(auth.Authenticated))
		r.Get("/events/booking/", h.ListBookings)
		r.Post("/events/booking/create/", h.CreateBooking)
		r.Get("/events/booking/{id}/", h.GetBooking)
		r.Get("/events/booking/{id}/pass/", h.GetPass)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/events/booking/pass/verify/", h.VerifyPass)
	})
}

func caller(r *http.Request) (*models.User, bool) {
	p := auth.PrincipalFrom(r.Context())
	if p == nil {
		return nil, false
	}
	return p.User, p.Admin
}

// CreateBooking runs admission for the authenticated caller. A request that
// would exceed capacity answers 409 with the caller's untouched prior booking.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	user, _ := caller(r)

	var req models.BookingRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateBooking: %v", err))
		utils.WriteError(w, "Invalid request body", err)
		return
	}
	if err := models.Validate(req); err != nil {
		utils.WriteError(w, "Invalid booking request", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateBooking: user=%d event=%d quantity=%d", user.ID, req.EventID, req.Quantity))

	result, err := h.Bookings.Book(r.Context(), user, req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateBooking: user=%d event=%d: %v", user.ID, req.EventID, err))
		utils.WriteError(w, "Booking failed", err)
		return
	}

	view := views.NewBookingView(*result.Booking)
	if !result.Committed {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{
			Success:   false,
			Message:   "Booking exceeding capacity",
			Error:     models.ErrCapacityExceeded.Error(),
			Data:      view,
			Timestamp: time.Now(),
		})
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Booking confirmed", view))
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	user, admin := caller(r)

	list, err := h.Bookings.List(r.Context(), user, admin)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListBookings: %v", err))
		utils.WriteError(w, "Failed to list bookings", err)
		return
	}
	h.Logger.Debug("API", fmt.Sprintf("ListBookings: user=%d admin=%t rows=%d", user.ID, admin, len(list)))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Bookings retrieved", views.NewBookingDetails(list)))
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.load(w, r)
	if !ok {
		return
	}
	detail, err := views.NewBookingDetail(*booking)
	if err != nil {
		utils.WriteError(w, "Failed to get booking", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking retrieved", detail))
}

// GetPass renders the booking's QR pass as a PNG.
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.load(w, r)
	if !ok {
		return
	}

	png, err := h.Passes.PNG(booking)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPass: booking %d: %v", booking.ID, err))
		utils.WriteError(w, "Failed to render pass", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPass: write failed: %v", err))
	}
}

// VerifyPass opens a scanned pass token and checks it against the live ledger.
func (h *Handler) VerifyPass(w http.ResponseWriter, r *http.Request) {
	var req models.PassCheckRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, "Invalid request body", err)
		return
	}
	if err := models.Validate(req); err != nil {
		utils.WriteError(w, "Invalid pass request", err)
		return
	}

	ref, err := h.Passes.Open(req.Pass)
	if err != nil {
		h.Logger.LogSecurity("INVALID_PASS", err.Error())
		utils.WriteError(w, "Invalid pass", err)
		return
	}

	user, admin := caller(r)
	booking, err := h.Bookings.Get(r.Context(), user, admin, ref.BookingID)
	if err != nil {
		utils.WriteError(w, "Pass booking not found", err)
		return
	}
	if booking.EventID != ref.EventID || booking.UserID != ref.UserID {
		h.Logger.LogSecurity("INVALID_PASS", fmt.Sprintf("pass for booking %d does not match the ledger", ref.BookingID))
		utils.WriteError(w, "Invalid pass", models.ValidationError("pass", "does not match its booking"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Pass verified", views.NewPassCheck(*booking, ref.Quantity, ref.IssuedAt)))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Booking, bool) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, "Invalid booking id", err)
		return nil, false
	}
	user, admin := caller(r)
	booking, err := h.Bookings.Get(r.Context(), user, admin, id)
	if err != nil {
		utils.WriteError(w, "Failed to get booking", err)
		return nil, false
	}
	return booking, true
}
