package handlers

import (
	"net/http"

	"linkbio-service/models"

	"github.com/gorilla/mux"
)

type CollectionHandler struct {
	collections CollectionAPI
}

func NewCollectionHandler(collections CollectionAPI) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

func (h *CollectionHandler) CreateLink(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	var input models.LinkInput
	if err := decodeJSON(w, r, &input); err != nil {
		return err
	}

	link, err := h.collections.AddLink(r.Context(), identity.UserID, input)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, JSONResponse{"message": "Link added", "link": link})
	return nil
}

func (h *CollectionHandler) UpdateLink(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	var update models.LinkUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		return err
	}

	link, err := h.collections.UpdateLink(r.Context(), identity.UserID, mux.Vars(r)["id"], update)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JSONResponse{"message": "Link updated", "link": link})
	return nil
}

func (h *CollectionHandler) DeleteLink(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	result, err := h.collections.DeleteLink(r.Context(), identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deleted("Link deleted", result.Warning))
	return nil
}

func (h *CollectionHandler) CreateSubtitle(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	var input models.SubtitleInput
	if err := decodeJSON(w, r, &input); err != nil {
		return err
	}

	subtitle, err := h.collections.AddSubtitle(r.Context(), identity.UserID, input)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, JSONResponse{"message": "Section added", "subtitle": subtitle})
	return nil
}

func (h *CollectionHandler) UpdateSubtitle(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	var update models.SubtitleUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		return err
	}

	subtitle, err := h.collections.UpdateSubtitle(r.Context(), identity.UserID, mux.Vars(r)["id"], update)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JSONResponse{"message": "Section updated", "subtitle": subtitle})
	return nil
}

func (h *CollectionHandler) DeleteSubtitle(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	result, err := h.collections.DeleteSubtitle(r.Context(), identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, deleted("Section deleted", result.Warning))
	return nil
}

func deleted(message, warning string) JSONResponse {
	response := JSONResponse{"message": message}
	if warning != "" {
		response["warning"] = warning
	}
	return response
}
