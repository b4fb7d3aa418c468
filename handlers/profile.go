package handlers

import (
	"errors"
	"net/http"
	"strings"

	"linkbio-service/middleware"
	"linkbio-service/models"
	"linkbio-service/render"
	"linkbio-service/services"
	"linkbio-service/storage"

	"github.com/gorilla/mux"
)

// multipart overhead allowed on top of the image itself
const formOverhead = 1 << 20

type ProfileHandler struct {
	profiles       ProfileAPI
	maxUploadBytes int64
}

func NewProfileHandler(profiles ProfileAPI, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, maxUploadBytes: maxUploadBytes}
}

// GetProfile returns the caller's own profile, creating it on first access.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}
	mode, err := render.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		return err
	}

	view, err := h.profiles.LoadProfile(r.Context(), "", &identity)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, render.FromProfileView(view, mode))
	return nil
}

func (h *ProfileHandler) PreviewProfile(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	view, err := h.profiles.LoadProfile(r.Context(), "", &identity)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, render.FromProfileView(view, render.ModePreview))
	return nil
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	var update models.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		return err
	}

	profile, err := h.profiles.SaveProfile(r.Context(), identity, update)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JSONResponse{"message": "Profile saved", "profile": profile})
	return nil
}

func (h *ProfileHandler) UsernameAvailability(w http.ResponseWriter, r *http.Request) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		return middleware.NewAppError(http.StatusBadRequest, "username is required", nil)
	}

	available, err := h.profiles.UsernameAvailable(r.Context(), identity.UserID, username)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JSONResponse{"username": strings.ToLower(username), "available": available})
	return nil
}

func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.upload(w, r, storage.KindAvatar)
}

func (h *ProfileHandler) UploadBackground(w http.ResponseWriter, r *http.Request) error {
	return h.upload(w, r, storage.KindBackground)
}

func (h *ProfileHandler) upload(w http.ResponseWriter, r *http.Request, kind storage.Kind) error {
	identity, err := requireIdentity(r)
	if err != nil {
		return err
	}

	if h.maxUploadBytes > 0 {
		limit := h.maxUploadBytes + formOverhead
		if r.ContentLength > limit {
			return middleware.NewAppError(http.StatusRequestEntityTooLarge, "File too large", nil)
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return middleware.NewAppError(http.StatusRequestEntityTooLarge, "File too large", err)
		}
		return middleware.NewAppError(http.StatusBadRequest, "Invalid multipart form", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "file is required", err)
	}
	defer file.Close()

	profile, err := h.profiles.UpdateImage(r.Context(), identity, kind, services.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, JSONResponse{"message": "Image uploaded", "profile": profile})
	return nil
}

// PublicProfile renders a profile by username or id. It never creates one.
func (h *ProfileHandler) PublicProfile(w http.ResponseWriter, r *http.Request) error {
	identifier := mux.Vars(r)["identifier"]

	view, err := h.profiles.LoadProfile(r.Context(), identifier, nil)
	if err != nil {
		return err
	}
	w.Header().Set("Cache-Control", "public, max-age=30")
	writeJSON(w, http.StatusOK, render.FromProfileView(view, render.ModePublic))
	return nil
}
