package routes

import (
	"net/http"

	"linkbio-service/config"
	"linkbio-service/handlers"
	"linkbio-service/middleware"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Profiles    *handlers.ProfileHandler
	Collections *handlers.CollectionHandler
	Analytics   *handlers.AnalyticsHandler
	Realtime    *handlers.RealtimeHandler
}

func SetupRoutes(cfg config.Config, h Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger)
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	auth := middleware.AuthMiddleware(cfg)
	private := func(handler middleware.AppHandler) http.Handler {
		return auth(middleware.ErrorHandler(handler))
	}

	api.Handle("/profile", private(h.Profiles.GetProfile)).Methods("GET")
	api.Handle("/profile", private(h.Profiles.UpdateProfile)).Methods("PATCH")
	api.Handle("/profile/preview", private(h.Profiles.PreviewProfile)).Methods("GET")
	api.Handle("/profile/username-availability", private(h.Profiles.UsernameAvailability)).Methods("GET")
	api.Handle("/profile/avatar", private(h.Profiles.UploadAvatar)).Methods("POST")
	api.Handle("/profile/background", private(h.Profiles.UploadBackground)).Methods("POST")

	api.Handle("/links", private(h.Collections.CreateLink)).Methods("POST")
	api.Handle("/links/{id}", private(h.Collections.UpdateLink)).Methods("PATCH")
	api.Handle("/links/{id}", private(h.Collections.DeleteLink)).Methods("DELETE")
	api.Handle("/subtitles", private(h.Collections.CreateSubtitle)).Methods("POST")
	api.Handle("/subtitles/{id}", private(h.Collections.UpdateSubtitle)).Methods("PATCH")
	api.Handle("/subtitles/{id}", private(h.Collections.DeleteSubtitle)).Methods("DELETE")

	api.Handle("/analytics", private(h.Analytics.GetMetrics)).Methods("GET")

	api.Handle("/public/profiles/{identifier}", middleware.ErrorHandler(h.Profiles.PublicProfile)).Methods("GET")
	api.Handle("/public/profiles/{identifier}/views", middleware.ErrorHandler(h.Analytics.RecordView)).Methods("POST")
	api.Handle("/public/profiles/{identifier}/clicks", middleware.ErrorHandler(h.Analytics.RecordClick)).Methods("POST")

	// Not wrapped in ErrorHandler: the upgrade needs the raw connection.
	api.Handle("/realtime/profiles/{identifier}", middleware.OptionalAuth(cfg)(h.Realtime)).Methods("GET")

	return router
}
