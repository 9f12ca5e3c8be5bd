package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter returns the API handler.
//
// Routes:
//
//	GET    /api/apps                         list applications
//	POST   /api/apps                         create an application
//	GET    /api/apps/{name}                  read metadata and properties
//	DELETE /api/apps/{name}                  delete an application
//	PATCH  /api/apps/{name}/properties       merge properties
//	PUT    /api/apps/{name}/properties       replace all properties
//	DELETE /api/apps/{name}/properties/{key} remove one property
//	GET    /api/search                       search properties
func NewRouter(h *Handler, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if h.Log == nil {
		h.Log = log
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(WithRequestLogging(log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/apps", h.ListApplications)
		r.Post("/apps", h.CreateApplication)
		r.Route("/apps/{name}", func(r chi.Router) {
			r.Get("/", h.GetApplication)
			r.Delete("/", h.DeleteApplication)
			r.Patch("/properties", h.MergeProperties)
			r.Put("/properties", h.ReplaceProperties)
			r.Delete("/properties/{key}", h.RemoveProperty)
		})
		r.Get("/search", h.Search)
	})

	return r
}
