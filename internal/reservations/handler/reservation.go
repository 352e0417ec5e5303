package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"deskhub/internal/reservations/repository"
	"deskhub/internal/reservations/service"
	apperrors "deskhub/pkg/errors"
	httputil "deskhub/pkg/http"
	"deskhub/pkg/logger"
	"deskhub/pkg/model"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

func (h *ReservationHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	reservation, err := h.service.Book(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req model.CancelReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	reservation, err := h.service.Cancel(r.Context(), id, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	userID := r.URL.Query().Get("user_id")

	reservation, err := h.service.GetByID(r.Context(), id, userID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, "List", h.service.ListByUser)
}

func (h *ReservationHandler) ListForHost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, "ListForHost", h.service.ListByHost)
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	officeID := r.URL.Query().Get("office_id")
	rng, err := httputil.ExtractDateRange(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), officeID, rng)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

type listFunc func(ctx context.Context, userID string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, int64, error)

func (h *ReservationHandler) list(w http.ResponseWriter, r *http.Request, name string, listFn listFunc) {
	userID := r.URL.Query().Get("user_id")

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
		}
		return
	}

	filter, err := extractListFilter(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
		}
		return
	}

	reservations, total, err := listFn(r.Context(), userID, filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", name, "operation", "WritePaginated", "error", err)
	}
}

// extractListFilter reads the optional status, office_id, and between-dates
// query parameters. The date window needs both endpoints.
func extractListFilter(r *http.Request) (repository.ListFilter, error) {
	query := r.URL.Query()
	filter := repository.ListFilter{
		OfficeID: query.Get("office_id"),
	}

	if statusRaw := query.Get("status"); statusRaw != "" {
		status := model.ReservationStatus(statusRaw)
		if status != model.ReservationStatusActive && status != model.ReservationStatusCancelled {
			return repository.ListFilter{}, apperrors.InvalidInput("status must be 'active' or 'cancelled'")
		}
		filter.Status = status
	}

	startRaw := query.Get("start_date")
	endRaw := query.Get("end_date")
	if startRaw != "" || endRaw != "" {
		rng, err := httputil.ExtractDateRange(r)
		if err != nil {
			return repository.ListFilter{}, err
		}
		if rng.End.Before(rng.Start.Time) {
			return repository.ListFilter{}, apperrors.InvalidInput("end_date must not be before start_date")
		}
		filter.Between = &rng
	}

	return filter, nil
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Book)
	router.POST("/api/v1/reservations/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)
	router.GET("/api/v1/reservations", h.List)
	router.GET("/api/v1/host/reservations", h.ListForHost)
	router.GET("/api/v1/reservations/availability", h.Availability)
}
