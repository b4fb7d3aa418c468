package handlers

import (
	"net/http"

	"linkbio-service/middleware"

	"github.com/gorilla/mux"
)

type AnalyticsHandler struct {
	analytics AnalyticsAPI
	profiles  ProfileAPI
}

func NewAnalyticsHandler(analytics AnalyticsAPI, profiles ProfileAPI) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, profiles: profiles}
}

func (h *AnalyticsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	metrics, err := h.analytics.ComputeMetrics(r.Context(), identity.UserID, r.URL.Query().Get("range"))
	if err != nil {
		return err
	}
	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, metrics)
	return nil
}

type pageViewRequest struct {
	SessionDuration int `json:"sessionDuration"`
}

// RecordView stores one public page view. The body may be empty.
func (h *AnalyticsHandler) RecordView(w http.ResponseWriter, r *http.Request) error {
	profile, err := h.profiles.Resolve(r.Context(), mux.Vars(r)["identifier"])
	if err != nil {
		return err
	}

	var req pageViewRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		return err
	}

	if _, err := h.analytics.RecordPageView(r.Context(), profile.ID, req.SessionDuration, visitFromRequest(r)); err != nil {
		return err
	}
	writeJSON(w, http.StatusAccepted, JSONResponse{"message": "View recorded"})
	return nil
}

type linkClickRequest struct {
	LinkID string `json:"linkId"`
}

func (h *AnalyticsHandler) RecordClick(w http.ResponseWriter, r *http.Request) error {
	profile, err := h.profiles.Resolve(r.Context(), mux.Vars(r)["identifier"])
	if err != nil {
		return err
	}

	var req linkClickRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.LinkID == "" {
		return middleware.NewAppError(http.StatusBadRequest, "linkId is required", nil)
	}

	if _, err := h.analytics.RecordLinkClick(r.Context(), profile.ID, req.LinkID, visitFromRequest(r)); err != nil {
		return err
	}
	writeJSON(w, http.StatusAccepted, JSONResponse{"message": "Click recorded"})
	return nil
}
