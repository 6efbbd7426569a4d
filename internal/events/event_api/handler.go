package event_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	events "ms-booking/internal/events/service"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/sse"
	"ms-booking/internal/utils"
	"ms-booking/internal/views"
)

type Handler struct {
	Events  *events.Service
	Query   *views.Query
	Emitter *sse.AvailabilityEmitter
	Logger  *logger.Logger
}

func NewHandler(eventService *events.Service, query *views.Query, emitter *sse.AvailabilityEmitter, log *logger.Logger) *Handler {
	return &Handler{
		Events:  eventService,
		Query:   query,
		Emitter: emitter,
		Logger:  log,
	}
}

// Register mounts the catalog routes. The caller must have run auth.Middleware.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.Require(auth.Authenticated))
		r.Get("/events/list/", h.ListEvents)
		r.Get("/events/{id}/availability/", h.StreamAvailability)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/events/create/", h.CreateEvent)
		r.Get("/events/{id}/", h.GetEvent)
		r.Put("/events/{id}/", h.ReplaceEvent)
		r.Patch("/events/{id}/", h.UpdateEvent)
		r.Delete("/events/{id}/", h.DeleteEvent)
		r.Get("/events/{id}/summary/", h.GetSummary)
	})
}

func viewer(r *http.Request) views.Viewer {
	p := auth.PrincipalFrom(r.Context())
	if p == nil || p.User == nil {
		return views.Viewer{}
	}
	return views.Viewer{UserID: p.User.ID, Admin: p.Admin}
}

func actor(r *http.Request) *models.User {
	if p := auth.PrincipalFrom(r.Context()); p != nil {
		return p.User
	}
	return nil
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	v := viewer(r)
	h.Logger.Info("API", fmt.Sprintf("ListEvents: user=%d admin=%t", v.UserID, v.Admin))

	list, err := h.Query.EventList(r.Context(), v)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEvents: %v", err))
		utils.WriteError(w, "Failed to list events", err)
		return
	}
	h.Logger.Debug("API", fmt.Sprintf("ListEvents: %d events", len(list)))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", list))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.EventInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateEvent: %v", err))
		utils.WriteError(w, "Invalid request body", err)
		return
	}

	event, err := h.Events.Create(r.Context(), actor(r), in)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
		utils.WriteError(w, "Failed to create event", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateEvent: event %d created", event.ID))
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", views.NewEventView(*event, nil)))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, "Invalid event id", err)
		return
	}

	view, err := h.Query.Event(r.Context(), id, viewer(r))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("GetEvent: id=%d: %v", id, err))
		utils.WriteError(w, "Failed to get event", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", view))
}

// ReplaceEvent is PUT: every writable field must be present.
func (h *Handler) ReplaceEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, "Invalid event id", err)
		return
	}
	var in models.EventInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, "Invalid request body", err)
		return
	}

	event, err := h.Events.Replace(r.Context(), actor(r), id, in)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ReplaceEvent: id=%d: %v", id, err))
		utils.WriteError(w, "Failed to update event", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ReplaceEvent: event %d replaced", id))
	h.writeEvent(w, r, event)
}

// UpdateEvent is PATCH: absent fields are left untouched.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, "Invalid event id", err)
		return
	}
	var patch models.EventPatch
	if err := utils.DecodeJSON(w, r, &patch); err != nil {
		utils.WriteError(w, "Invalid request body", err)
		return
	}

	event, err := h.Events.Update(r.Context(), actor(r), id, patch)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateEvent: id=%d: %v", id, err))
		utils.WriteError(w, "Failed to update event", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpdateEvent: event %d updated", id))
	h.writeEvent(w, r, event)
}

func (h *Handler) writeEvent(w http.ResponseWriter, r *http.Request, event *models.Event) {
	view, err := h.Query.Event(r.Context(), event.ID, viewer(r))
	if err != nil {
		utils.WriteError(w, "Failed to get event", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event updated", view))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, "Invalid event id", err)
		return
	}

	if err := h.Events.Delete(r.Context(), actor(r), id); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteEvent: id=%d: %v", id, err))
		utils.WriteError(w, "Failed to delete event", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("DeleteEvent: event %d deleted", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, "Invalid event id", err)
		return
	}

	summary, err := h.Query.Summary(r.Context(), id)
	if err != nil {
		utils.WriteError(w, "Failed to summarize event", err)
		return
	}
	if !summary.Consistent {
		h.Logger.Warn("BOOKING", fmt.Sprintf("event %d: total_booked=%d ledger_sum=%d capacity=%d",
			id, summary.TotalBooked, summary.LedgerSum, summary.MaximumCapacity))
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event summary", summary))
}
