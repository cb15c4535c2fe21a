package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/calendar"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/client"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/models"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/pipeline"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/service"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/validation"
)

// Defaults are applied when a request omits the optional parameters.
type Defaults struct {
	Categories    []string
	ExtensionDays int
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	service  *service.Service
	defaults Defaults
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service, defaults Defaults) *Handler {
	return &Handler{service: svc, defaults: defaults}
}

// GetRecommendations handles GET /recommendations.
//
// The checkin date is taken from the checkin query parameter, or from the
// separate year, month and day parameters joined with '-' (the shape the
// original interactive prompt produced). categories and days are optional
// and fall back to the configured defaults.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	checkin := q.Get("checkin")
	if checkin == "" {
		year, month, day := q.Get("year"), q.Get("month"), q.Get("day")
		if year == "" && month == "" && day == "" {
			h.respondError(w, http.StatusBadRequest, "checkin date is required")
			return
		}
		checkin = strings.Join([]string{year, month, day}, "-")
	}

	req := service.Request{
		CheckinDate:   checkin,
		Categories:    h.defaults.Categories,
		ExtensionDays: h.defaults.ExtensionDays,
	}

	if cats := q.Get("categories"); cats != "" {
		req.Categories = nil
		for _, c := range strings.Split(cats, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.Categories = append(req.Categories, c)
			}
		}
	}

	if days := q.Get("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			h.respondError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		req.ExtensionDays = n
	}

	resp, err := h.service.Recommend(r.Context(), req)
	if err != nil {
		h.respondRecommendError(w, err)
		return
	}

	w.Header().Set("X-Run-ID", resp.RunID)
	h.respondJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// respondRecommendError maps domain errors onto HTTP status codes:
// caller mistakes are 4xx, upstream feed trouble is 502.
func (h *Handler) respondRecommendError(w http.ResponseWriter, err error) {
	var (
		validationErr *validation.ValidationError
		parseErr      *calendar.ParseError
		notFoundErr   *pipeline.CategoryNotFoundError
		statusErr     *client.StatusError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &parseErr),
		errors.Is(err, calendar.ErrExtensionTooLong):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundErr):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &statusErr), errors.Is(err, client.ErrMissingOffersKey):
		h.respondError(w, http.StatusBadGateway, err.Error())
	default:
		h.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
