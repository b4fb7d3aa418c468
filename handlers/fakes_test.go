package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"linkbio-service/middleware"
	"linkbio-service/models"
	"linkbio-service/services"
	"linkbio-service/storage"
	"linkbio-service/utils"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
)

const (
	ownerID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	otherID = "16fd2706-8baf-433b-82eb-8c7fada847da"
)

type fakeProfiles struct {
	views        map[string]models.ProfileView
	loadErr      error
	saved        models.ProfileUpdate
	saveErr      error
	available    bool
	uploadedKind storage.Kind
	uploadedBody string
	uploadErr    error
	loads        int
}

func (f *fakeProfiles) LoadProfile(_ context.Context, identifier string, identity *services.Identity) (models.ProfileView, error) {
	f.loads++
	if f.loadErr != nil {
		return models.ProfileView{}, f.loadErr
	}
	if identity != nil && (identifier == "" || identifier == identity.UserID) {
		identifier = identity.UserID
	}
	view, ok := f.views[identifier]
	if !ok {
		return models.ProfileView{}, models.ErrNotFound
	}
	return view, nil
}

func (f *fakeProfiles) Resolve(_ context.Context, identifier string) (models.Profile, error) {
	view, ok := f.views[identifier]
	if !ok {
		return models.Profile{}, models.ErrNotFound
	}
	return view.Profile, nil
}

func (f *fakeProfiles) SaveProfile(_ context.Context, identity services.Identity, update models.ProfileUpdate) (models.Profile, error) {
	if f.saveErr != nil {
		return models.Profile{}, f.saveErr
	}
	f.saved = update
	profile := f.views[identity.UserID].Profile
	if update.Name != nil {
		profile.Name = *update.Name
	}
	return profile, nil
}

func (f *fakeProfiles) UsernameAvailable(context.Context, string, string) (bool, error) {
	return f.available, nil
}

func (f *fakeProfiles) UpdateImage(_ context.Context, identity services.Identity, kind storage.Kind, upload services.ImageUpload) (models.Profile, error) {
	if f.uploadErr != nil {
		return models.Profile{}, f.uploadErr
	}
	data, _ := io.ReadAll(upload.Body)
	f.uploadedKind, f.uploadedBody = kind, string(data)
	profile := f.views[identity.UserID].Profile
	profile.AvatarURL = "https://cdn.example.com/" + upload.Filename
	return profile, nil
}

type fakeCollections struct {
	lastProfile string
	lastID      string
	linkInput   models.LinkInput
	linkUpdate  models.LinkUpdate
	subInput    models.SubtitleInput
	warning     string
	err         error
}

func (f *fakeCollections) AddLink(_ context.Context, profileID string, input models.LinkInput) (models.Link, error) {
	f.lastProfile, f.linkInput = profileID, input
	return models.Link{ID: "l1", ProfileID: profileID, Title: input.Title, URL: input.URL}, f.err
}

func (f *fakeCollections) UpdateLink(_ context.Context, profileID, linkID string, update models.LinkUpdate) (models.Link, error) {
	f.lastProfile, f.lastID, f.linkUpdate = profileID, linkID, update
	return models.Link{ID: linkID, ProfileID: profileID}, f.err
}

func (f *fakeCollections) DeleteLink(_ context.Context, profileID, linkID string) (services.DeleteResult, error) {
	f.lastProfile, f.lastID = profileID, linkID
	return services.DeleteResult{Warning: f.warning}, f.err
}

func (f *fakeCollections) AddSubtitle(_ context.Context, profileID string, input models.SubtitleInput) (models.Subtitle, error) {
	f.lastProfile, f.subInput = profileID, input
	return models.Subtitle{ID: "s1", ProfileID: profileID, Text: input.Text}, f.err
}

func (f *fakeCollections) UpdateSubtitle(_ context.Context, profileID, subtitleID string, _ models.SubtitleUpdate) (models.Subtitle, error) {
	f.lastProfile, f.lastID = profileID, subtitleID
	return models.Subtitle{ID: subtitleID, ProfileID: profileID}, f.err
}

func (f *fakeCollections) DeleteSubtitle(_ context.Context, profileID, subtitleID string) (services.DeleteResult, error) {
	f.lastProfile, f.lastID = profileID, subtitleID
	return services.DeleteResult{Warning: f.warning}, f.err
}

type fakeAnalytics struct {
	rangeValue string
	metrics    models.Metrics
	err        error
	views      []int
	visit      services.Visit
	clickedID  string
	profileID  string
}

func (f *fakeAnalytics) ComputeMetrics(_ context.Context, userID, rangeValue string) (models.Metrics, error) {
	f.profileID, f.rangeValue = userID, rangeValue
	return f.metrics, f.err
}

func (f *fakeAnalytics) RecordPageView(_ context.Context, profileID string, seconds int, visit services.Visit) (models.PageView, error) {
	f.profileID, f.visit = profileID, visit
	f.views = append(f.views, seconds)
	return models.PageView{}, f.err
}

func (f *fakeAnalytics) RecordLinkClick(_ context.Context, profileID, linkID string, visit services.Visit) (models.LinkClick, error) {
	f.profileID, f.clickedID, f.visit = profileID, linkID, visit
	return models.LinkClick{}, f.err
}

func withOwner(req *http.Request) *http.Request {
	claims := &utils.Claims{Name: "Ada", Email: "ada@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: ownerID}}
	return req.WithContext(middleware.ContextWithClaims(req.Context(), claims))
}

func withVars(req *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(req, vars)
}

func executeRequest(handler middleware.AppHandler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	middleware.ErrorHandler(handler).ServeHTTP(rec, req)
	return rec
}

func ownerView() models.ProfileView {
	username := "ada"
	subtitleID := "s1"
	return models.ProfileView{
		Profile:   models.Profile{ID: ownerID, Name: "Ada", Username: &username, ProfileBgColor: "pnk50"},
		Subtitles: []models.Subtitle{{ID: subtitleID, ProfileID: ownerID, Text: "Socials"}},
		Links:     []models.Link{{ID: "l1", ProfileID: ownerID, SubtitleID: &subtitleID, Title: "GitHub", URL: "https://github.com/ada"}},
	}
}

func newFakeProfiles() *fakeProfiles {
	view := ownerView()
	return &fakeProfiles{views: map[string]models.ProfileView{ownerID: view, "ada": view}}
}
