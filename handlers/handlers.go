// Package handlers exposes the profile, collection, analytics and realtime
// services over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"linkbio-service/middleware"
	"linkbio-service/models"
	"linkbio-service/services"
	"linkbio-service/storage"
	"linkbio-service/utils"
)

type JSONResponse map[string]interface{}

type ProfileAPI interface {
	LoadProfile(ctx context.Context, identifier string, identity *services.Identity) (models.ProfileView, error)
	Resolve(ctx context.Context, identifier string) (models.Profile, error)
	SaveProfile(ctx context.Context, identity services.Identity, update models.ProfileUpdate) (models.Profile, error)
	UsernameAvailable(ctx context.Context, userID, username string) (bool, error)
	UpdateImage(ctx context.Context, identity services.Identity, kind storage.Kind, upload services.ImageUpload) (models.Profile, error)
}

type CollectionAPI interface {
	AddLink(ctx context.Context, profileID string, input models.LinkInput) (models.Link, error)
	UpdateLink(ctx context.Context, profileID, linkID string, update models.LinkUpdate) (models.Link, error)
	DeleteLink(ctx context.Context, profileID, linkID string) (services.DeleteResult, error)
	AddSubtitle(ctx context.Context, profileID string, input models.SubtitleInput) (models.Subtitle, error)
	UpdateSubtitle(ctx context.Context, profileID, subtitleID string, update models.SubtitleUpdate) (models.Subtitle, error)
	DeleteSubtitle(ctx context.Context, profileID, subtitleID string) (services.DeleteResult, error)
}

type AnalyticsAPI interface {
	ComputeMetrics(ctx context.Context, userID, rangeValue string) (models.Metrics, error)
	RecordPageView(ctx context.Context, profileID string, sessionSeconds int, visit services.Visit) (models.PageView, error)
	RecordLinkClick(ctx context.Context, profileID, linkID string, visit services.Visit) (models.LinkClick, error)
}

const maxJSONBody = 64 << 10

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if err == io.EOF {
			return middleware.NewAppError(http.StatusBadRequest, "Request body is required", err)
		}
		return middleware.NewAppError(http.StatusBadRequest, "Invalid request payload", err)
	}
	return nil
}

// decodeOptionalJSON leaves dst untouched when the body is empty, chunked or
// not.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := decodeJSON(w, r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func identityFromClaims(claims *utils.Claims) services.Identity {
	return services.Identity{UserID: claims.UserID(), Name: claims.Name, Email: claims.Email}
}

// requireIdentity reads the verified caller set by middleware.AuthMiddleware.
func requireIdentity(r *http.Request) (services.Identity, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UserID() == "" {
		return services.Identity{}, middleware.NewAppError(http.StatusUnauthorized, "Unauthorized", nil)
	}
	return identityFromClaims(claims), nil
}

// optionalIdentity is nil for anonymous visitors.
func optionalIdentity(r *http.Request) *services.Identity {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UserID() == "" {
		return nil
	}
	identity := identityFromClaims(claims)
	return &identity
}

func visitFromRequest(r *http.Request) services.Visit {
	return services.Visit{
		RemoteIP:  clientIP(r),
		UserAgent: r.UserAgent(),
		Country:   countryFromRequest(r),
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func countryFromRequest(r *http.Request) string {
	for _, header := range []string{"CF-IPCountry", "CloudFront-Viewer-Country", "X-Country-Code"} {
		if value := strings.TrimSpace(r.Header.Get(header)); value != "" {
			return value
		}
	}
	return ""
}
