package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/services"
)

// MembersHandler serves the read API over the cleaned members table.
type MembersHandler struct {
	svc    services.MemberService
	logger *zap.Logger
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(svc services.MemberService, logger *zap.Logger) *MembersHandler {
	return &MembersHandler{
		svc:    svc,
		logger: logger,
	}
}

// RegisterRoutes registers the members handler's routes on the given mux.
func (h *MembersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Status)
	mux.HandleFunc("GET /attributes", h.Attributes)
	mux.HandleFunc("GET /{attribute}/unique", h.UniqueValues)
	mux.HandleFunc("GET /{attribute}/count", h.CountByValue)
	mux.HandleFunc("POST /table/filtered", h.FilterMembers)
	mux.HandleFunc("POST /country_code/count/filtered", h.CountryCounts)
}

// Status handles GET / and names the queried table.
func (h *MembersHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.write(w, h.svc.Status())
}

// Attributes handles GET /attributes.
func (h *MembersHandler) Attributes(w http.ResponseWriter, r *http.Request) {
	h.write(w, h.svc.Attributes())
}

// UniqueValues handles GET /{attribute}/unique.
func (h *MembersHandler) UniqueValues(w http.ResponseWriter, r *http.Request) {
	attr, err := ParseAttribute(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	resp, err := h.svc.UniqueValues(r.Context(), attr)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	h.write(w, resp)
}

// CountByValue handles GET /{attribute}/count?start_date&end_date.
func (h *MembersHandler) CountByValue(w http.ResponseWriter, r *http.Request) {
	attr, err := ParseAttribute(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	dates, err := ParseDateRange(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	resp, err := h.svc.CountByValue(r.Context(), attr, dates)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	h.write(w, resp)
}

// FilterMembers handles POST /table/filtered?offset&limit.
func (h *MembersHandler) FilterMembers(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePage(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	req, err := DecodeFilterRequest(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	resp, err := h.svc.FilterMembers(r.Context(), req, page)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	h.write(w, resp)
}

// CountryCounts handles POST /country_code/count/filtered.
func (h *MembersHandler) CountryCounts(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeFilterRequest(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	resp, err := h.svc.CountryCounts(r.Context(), req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	h.write(w, resp)
}

func (h *MembersHandler) write(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
