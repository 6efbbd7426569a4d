package event_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

// StreamAvailability pushes remaining capacity for one event after every
// committed booking or catalog edit. The stream ends when the event is deleted.
func (h *Handler) StreamAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, "Invalid event id", err)
		return
	}

	event, err := h.Events.Get(r.Context(), id)
	if err != nil {
		utils.WriteError(w, "Failed to get event", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, "Streaming unsupported", errors.New("response writer cannot flush"))
		return
	}

	// long-lived stream: lift the server write timeout for this response
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ctx := r.Context()
	updates := h.Emitter.Subscribe(ctx, id)

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := writeAvailability(w, models.AvailabilityOf(event)); err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize availability: %v", err))
		return
	}
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to availability stream for event: %d", id))

	for {
		select {
		case a, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				h.Logger.Debug("SSE", fmt.Sprintf("Availability stream closed for event: %d", id))
				return
			}
			if err := writeAvailability(w, a); err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize availability: %v", err))
				continue
			}
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from availability stream for event: %d", id))
			return
		}
	}
}

func writeAvailability(w http.ResponseWriter, a models.Availability) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: availability\ndata: %s\n\n", data)
	return err
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
