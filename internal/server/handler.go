// Package server exposes the application service over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ssoconfig/internal/service"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// MaskPlaceholder replaces masked values unless the caller asks to reveal
// them.
const MaskPlaceholder = "***"

// Applications is the service surface the handlers depend on.
type Applications interface {
	CreateApplication(ctx context.Context, name, description string, bag *types.PropertyBag) error
	MergeProperties(ctx context.Context, name string, bag *types.PropertyBag) error
	ReplaceProperties(ctx context.Context, name string, bag *types.PropertyBag) error
	RemoveProperties(ctx context.Context, name string, keys []string) error
	GetApplication(ctx context.Context, name string) (*types.Application, error)
	DeleteApplication(ctx context.Context, name string) error
	ListApplications(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string, opts service.SearchOptions) ([]string, error)
}

// Handler serves the /api routes.
type Handler struct {
	Apps Applications
	Log  *zap.Logger
}

// CreateRequest is the body of POST /api/apps.
type CreateRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Properties  []types.Property `json:"properties"`
}

// ListResponse carries application names.
type ListResponse struct {
	Applications []string `json:"applications"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error              string `json:"error"`
	PartialFailure     bool   `json:"partial_failure,omitempty"`
	ApplicationDeleted bool   `json:"application_deleted,omitempty"`
}

// ListApplications handles GET /api/apps.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	names, err := h.Apps.ListApplications(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Applications: names})
}

// CreateApplication handles POST /api/apps.
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.Apps.CreateApplication(r.Context(), req.Name, req.Description, types.BagOf(req.Properties...)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/apps/"+req.Name)
	w.WriteHeader(http.StatusCreated)
}

// GetApplication handles GET /api/apps/{name}. Masked values are hidden
// unless the query has reveal=true.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.Apps.GetApplication(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if reveal, _ := strconv.ParseBool(r.URL.Query().Get("reveal")); !reveal {
		app.Properties = app.Properties.Redacted(MaskPlaceholder)
	}
	writeJSON(w, http.StatusOK, app)
}

// DeleteApplication handles DELETE /api/apps/{name}.
func (h *Handler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	if err := h.Apps.DeleteApplication(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MergeProperties handles PATCH /api/apps/{name}/properties.
func (h *Handler) MergeProperties(w http.ResponseWriter, r *http.Request) {
	h.writeProperties(w, r, h.Apps.MergeProperties)
}

// ReplaceProperties handles PUT /api/apps/{name}/properties.
func (h *Handler) ReplaceProperties(w http.ResponseWriter, r *http.Request) {
	h.writeProperties(w, r, h.Apps.ReplaceProperties)
}

func (h *Handler) writeProperties(w http.ResponseWriter, r *http.Request,
	write func(context.Context, string, *types.PropertyBag) error) {
	bag := types.NewPropertyBag()
	if err := json.NewDecoder(r.Body).Decode(bag); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := write(r.Context(), chi.URLParam(r, "name"), bag); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveProperty handles DELETE /api/apps/{name}/properties/{key}.
func (h *Handler) RemoveProperty(w http.ResponseWriter, r *http.Request) {
	keys := []string{chi.URLParam(r, "key")}
	if err := h.Apps.RemoveProperties(r.Context(), chi.URLParam(r, "name"), keys); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search?q=&keys=&values=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keys, _ := strconv.ParseBool(q.Get("keys"))
	values, _ := strconv.ParseBool(q.Get("values"))

	names, err := h.Apps.Search(r.Context(), q.Get("q"), service.SearchOptions{Keys: keys, Values: values})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Applications: names})
}

// writeError maps err onto a status code and JSON body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var pf *types.PartialFailureError
	switch {
	case errors.As(err, &pf):
		resp.PartialFailure = true
		resp.ApplicationDeleted = pf.ApplicationDeleted
	case errors.Is(err, types.ErrInvalidName), errors.Is(err, types.ErrInvalidPropertyName):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrApplicationExists):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError && h.Log != nil {
		h.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Bool("partial_failure", resp.PartialFailure),
			zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
