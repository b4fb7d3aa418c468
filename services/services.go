// Package services holds the profile, collection and analytics logic behind
// the HTTP handlers. Persistence, object storage, caching and realtime fan-out
// are injected through the interfaces below.
package services

import (
	"context"
	"io"
	"time"

	"linkbio-service/models"
	"linkbio-service/realtime"
	"linkbio-service/storage"
)

// Identity is the authenticated caller as asserted by the hosted auth service.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

type ProfileRepository interface {
	GetProfileByID(ctx context.Context, id string) (models.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (models.Profile, error)
	CreateProfile(ctx context.Context, profile models.Profile) (bool, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate, updatedAt time.Time) (models.Profile, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	ListSubtitles(ctx context.Context, profileID string) ([]models.Subtitle, error)
	ListLinks(ctx context.Context, profileID string) ([]models.Link, error)
}

type CollectionRepository interface {
	GetSubtitle(ctx context.Context, profileID, id string) (models.Subtitle, error)
	ListSubtitles(ctx context.Context, profileID string) ([]models.Subtitle, error)
	CountSubtitles(ctx context.Context, profileID string) (int, error)
	InsertSubtitle(ctx context.Context, subtitle models.Subtitle) error
	UpdateSubtitle(ctx context.Context, subtitle models.Subtitle, shifts []models.OrderChange) (models.Subtitle, error)
	DeleteSubtitle(ctx context.Context, profileID, id string) error
	ReorderSubtitles(ctx context.Context, profileID string, changes []models.OrderChange) error

	GetLink(ctx context.Context, profileID, id string) (models.Link, error)
	ListLinksInSubtitle(ctx context.Context, profileID, subtitleID string) ([]models.Link, error)
	CountLinks(ctx context.Context, profileID, subtitleID string) (int, error)
	InsertLink(ctx context.Context, link models.Link) error
	UpdateLink(ctx context.Context, link models.Link, shifts []models.OrderChange) (models.Link, error)
	DeleteLink(ctx context.Context, profileID, id string) error
	ReorderLinks(ctx context.Context, profileID string, changes []models.OrderChange) error
}

type AnalyticsRepository interface {
	ListSessionDurations(ctx context.Context, userID string, from, to time.Time) ([]int, error)
	CountLinkClicks(ctx context.Context, userID string, from, to time.Time) (int, error)
	DeviceStats(ctx context.Context, userID string, from time.Time) ([]models.DeviceCount, error)
	GeoStats(ctx context.Context, userID string, from time.Time) ([]models.CountryCount, error)
	LinkClickCounts(ctx context.Context, userID string, from, to time.Time, limit int) ([]models.LinkClickCount, error)
	InsertPageView(ctx context.Context, view models.PageView) (int64, error)
	InsertLinkClick(ctx context.Context, click models.LinkClick) (int64, error)
	GetLink(ctx context.Context, profileID, id string) (models.Link, error)
}

// ImageStore uploads profile images and returns the URL to persist.
type ImageStore interface {
	Upload(ctx context.Context, kind storage.Kind, userID, filename, contentType string, body io.Reader, size int64) (string, error)
}

// MetricsCache stores serialized analytics summaries.
type MetricsCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Publisher fans a change out to realtime subscribers. It is nil when change
// notifications come from Postgres triggers instead.
type Publisher interface {
	Publish(notification realtime.Notification)
}

func publish(publisher Publisher, table realtime.Table, op realtime.Operation, profileID string) {
	if publisher == nil {
		return
	}
	publisher.Publish(realtime.Notification{Table: table, Operation: op, ProfileID: profileID})
}
