package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"linkbio-service/models"
	"linkbio-service/realtime"
	"linkbio-service/storage"
	"linkbio-service/theme"
	"linkbio-service/utils"

	"github.com/google/uuid"
)

const (
	defaultName     = "New User"
	defaultTitle    = "Digital Creator"
	defaultLocation = "Worldwide"
)

type ProfileService struct {
	repo      ProfileRepository
	images    ImageStore
	publisher Publisher
	now       func() time.Time
}

func NewProfileService(repo ProfileRepository, images ImageStore, publisher Publisher) *ProfileService {
	return &ProfileService{
		repo:      repo,
		images:    images,
		publisher: publisher,
		now:       time.Now,
	}
}

// DefaultProfile is the row created on a user's first authenticated visit.
func DefaultProfile(identity Identity, now time.Time) models.Profile {
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = defaultName
	}
	return models.Profile{
		ID:               identity.UserID,
		Name:             name,
		Title:            defaultTitle,
		Location:         defaultLocation,
		Available:        true,
		ProfileBgColor:   theme.Default(theme.Background),
		ProfileTextColor: theme.Default(theme.Text),
		ButtonBgColor:    theme.Default(theme.ButtonBackground),
		ButtonTextColor:  theme.Default(theme.ButtonText),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// LoadProfile returns the profile with its ordered subtitles and links.
// Looking up the caller's own profile creates it on first access; any other
// identifier is resolved as a user id or a username and never created.
func (s *ProfileService) LoadProfile(ctx context.Context, identifier string, identity *Identity) (models.ProfileView, error) {
	identifier = strings.TrimSpace(identifier)

	var profile models.Profile
	var err error
	if identity != nil && (identifier == "" || identifier == identity.UserID) {
		profile, err = s.ensureProfile(ctx, *identity)
	} else {
		profile, err = s.Resolve(ctx, identifier)
	}
	if err != nil {
		return models.ProfileView{}, err
	}

	subtitles, err := s.repo.ListSubtitles(ctx, profile.ID)
	if err != nil {
		return models.ProfileView{}, models.Backend("load subtitles", err)
	}
	links, err := s.repo.ListLinks(ctx, profile.ID)
	if err != nil {
		return models.ProfileView{}, models.Backend("load links", err)
	}
	return models.ProfileView{Profile: profile, Subtitles: subtitles, Links: links}, nil
}

// Resolve finds a public profile. UUID-shaped identifiers are user ids;
// anything else is a username.
func (s *ProfileService) Resolve(ctx context.Context, identifier string) (models.Profile, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return models.Profile{}, models.ErrNotFound
	}

	var profile models.Profile
	var err error
	if id, parseErr := uuid.Parse(identifier); parseErr == nil {
		profile, err = s.repo.GetProfileByID(ctx, id.String())
	} else {
		profile, err = s.repo.GetProfileByUsername(ctx, strings.ToLower(identifier))
	}
	if err != nil {
		return models.Profile{}, models.Backend("load profile", err)
	}
	return profile, nil
}

func (s *ProfileService) ensureProfile(ctx context.Context, identity Identity) (models.Profile, error) {
	profile, err := s.repo.GetProfileByID(ctx, identity.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.Profile{}, models.Backend("load profile", err)
	}

	created, err := s.repo.CreateProfile(ctx, DefaultProfile(identity, s.now().UTC()))
	if err != nil {
		return models.Profile{}, models.Backend("create profile", err)
	}
	if created {
		log.Printf("profile created user_id=%s", identity.UserID)
		publish(s.publisher, realtime.TableProfiles, realtime.OpInsert, identity.UserID)
	}

	// A concurrent first visit may have won the insert; read whichever row exists.
	profile, err = s.repo.GetProfileByID(ctx, identity.UserID)
	if err != nil {
		return models.Profile{}, models.Backend("load profile", err)
	}
	return profile, nil
}

// SaveProfile writes the supplied fields. A username is validated and must
// not belong to another profile; an empty username releases it.
func (s *ProfileService) SaveProfile(ctx context.Context, identity Identity, update models.ProfileUpdate) (models.Profile, error) {
	if update.IsEmpty() {
		return models.Profile{}, models.NewValidationError("", "no fields to update")
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return models.Profile{}, models.NewValidationError("name", "name cannot be empty")
	}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		update.Username = &username
		if username != "" {
			if err := utils.ValidateUsername(username); err != nil {
				return models.Profile{}, models.NewValidationError("username", err.Error())
			}
			taken, err := s.repo.UsernameTaken(ctx, username, identity.UserID)
			if err != nil {
				return models.Profile{}, models.Backend("check username", err)
			}
			if taken {
				return models.Profile{}, fmt.Errorf("%w: username %q is already taken", models.ErrConflict, username)
			}
		}
	}

	profile, err := s.repo.UpdateProfile(ctx, identity.UserID, update, s.now().UTC())
	if errors.Is(err, models.ErrNotFound) {
		if _, err := s.ensureProfile(ctx, identity); err != nil {
			return models.Profile{}, err
		}
		profile, err = s.repo.UpdateProfile(ctx, identity.UserID, update, s.now().UTC())
	}
	if err != nil {
		return models.Profile{}, models.Backend("save profile", err)
	}
	publish(s.publisher, realtime.TableProfiles, realtime.OpUpdate, identity.UserID)
	return profile, nil
}

// UsernameAvailable reports whether username could be claimed by the caller.
func (s *ProfileService) UsernameAvailable(ctx context.Context, userID, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := utils.ValidateUsername(username); err != nil {
		return false, models.NewValidationError("username", err.Error())
	}
	taken, err := s.repo.UsernameTaken(ctx, username, userID)
	if err != nil {
		return false, models.Backend("check username", err)
	}
	return !taken, nil
}

// ImageUpload is a single file received from the editor.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateImage stores an avatar or background image and points the profile at it.
func (s *ProfileService) UpdateImage(ctx context.Context, identity Identity, kind storage.Kind, upload ImageUpload) (models.Profile, error) {
	if s.images == nil {
		return models.Profile{}, models.Backend("upload image", errors.New("object storage is not configured"))
	}
	url, err := s.images.Upload(ctx, kind, identity.UserID, upload.Filename, upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		return models.Profile{}, models.Backend("upload image", err)
	}

	var update models.ProfileUpdate
	switch kind {
	case storage.KindAvatar:
		update.AvatarURL = &url
	case storage.KindBackground:
		update.BackgroundURL = &url
	default:
		return models.Profile{}, models.NewValidationError("kind", fmt.Sprintf("unknown image kind %q", kind))
	}
	return s.SaveProfile(ctx, identity, update)
}
