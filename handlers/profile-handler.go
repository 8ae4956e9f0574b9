package handlers

import (
	"encoding/json"
	"net/http"

	"marketplace-auth/middleware"
	"marketplace-auth/models"
	"marketplace-auth/portfolio"
	"marketplace-auth/store"
)

type ProfileHandler struct {
	records   store.Records
	portfolio *portfolio.Manager
}

func NewProfileHandler(records store.Records, manager *portfolio.Manager) *ProfileHandler {
	return &ProfileHandler{records: records, portfolio: manager}
}

// MeHandler returns the canonical metadata record for the session user.
func (h *ProfileHandler) MeHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return middleware.NewAppError(http.StatusUnauthorized, "No session", nil)
	}

	var metadata models.UserMetadata
	found, err := h.records.Once(r.Context(), store.Path(store.UserMetadataPath, claims.UID), &metadata)
	if err != nil {
		return middleware.NewAppError(http.StatusInternalServerError, "Could not load user metadata", err)
	}
	if !found {
		return middleware.NewAppError(http.StatusNotFound, "User metadata not found", nil)
	}

	json.NewEncoder(w).Encode(metadata)
	return nil
}

func (h *ProfileHandler) UpdatePortfolioHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return middleware.NewAppError(http.StatusUnauthorized, "No session", nil)
	}

	var req struct {
		Photos     []models.PortfolioPhoto `json:"photos"`
		Initiation bool                    `json:"initiation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid request payload", err)
	}
	if len(req.Photos) == 0 {
		return middleware.NewAppError(http.StatusBadRequest, "At least one photo is required", nil)
	}

	if err := h.portfolio.UpdatePhotosPortfolio(r.Context(), claims.UID, req.Photos, req.Initiation); err != nil {
		return middleware.NewAppError(http.StatusInternalServerError, "Could not update portfolio", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{"message": "Portfolio updated"})
	return nil
}

func (h *ProfileHandler) DeletePortfolioPhotosHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return middleware.NewAppError(http.StatusUnauthorized, "No session", nil)
	}

	var req struct {
		Deleted   []models.PortfolioPhoto `json:"deleted"`
		Remaining []models.PortfolioPhoto `json:"remaining"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid request payload", err)
	}
	if len(req.Deleted) == 0 {
		return middleware.NewAppError(http.StatusBadRequest, "Nothing to delete", nil)
	}

	if err := h.portfolio.DeletePhotos(r.Context(), claims.UID, req.Deleted, req.Remaining); err != nil {
		return middleware.NewAppError(http.StatusBadGateway, "Could not delete portfolio photos", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{"message": "Portfolio photos deleted"})
	return nil
}

func (h *ProfileHandler) UpdateDisplayPictureHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return middleware.NewAppError(http.StatusUnauthorized, "No session", nil)
	}

	var req struct {
		URL      string `json:"url"`
		PublicID string `json:"publicId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid request payload", err)
	}
	if req.URL == "" || req.PublicID == "" {
		return middleware.NewAppError(http.StatusBadRequest, "Picture url and publicId are required", nil)
	}

	if err := h.portfolio.UpdateDefaultDisplayPicture(r.Context(), claims.UID, req.URL, req.PublicID); err != nil {
		return middleware.NewAppError(http.StatusInternalServerError, "Could not update display picture", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{"message": "Display picture updated"})
	return nil
}
