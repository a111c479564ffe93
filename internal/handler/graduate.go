package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/graduate-showcase/internal/apperror"
	"github.com/sakif/graduate-showcase/internal/model"
	"github.com/sakif/graduate-showcase/internal/service"
)

// HomeMessage is the plain-text body of GET /.
const HomeMessage = "Hello Server. Im running now"

// GraduateService is what the handler needs from the service layer.
// *service.GraduateService implements it; tests may pass a fake.
type GraduateService interface {
	Create(ctx context.Context, in service.CreateGraduateInput) (*model.Graduate, error)
	ListProfiles(ctx context.Context) ([]model.GraduateProfile, error)
	LookupID(ctx context.Context, name string) (int64, error)
}

// GraduateHandler serves the graduate endpoints.
type GraduateHandler struct {
	service GraduateService
	logger  *slog.Logger
}

// NewGraduateHandler creates a new GraduateHandler.
func NewGraduateHandler(svc GraduateService, logger *slog.Logger) *GraduateHandler {
	return &GraduateHandler{service: svc, logger: logger}
}

// submitRequest is the JSON body of a submission. Field names match the
// column names of graduates_data.
type submitRequest struct {
	Name      string `json:"name"`
	GitHubURL string `json:"github_url"`
	Role      string `json:"role"`
	CVLink    string `json:"cv_link"`
}

// SubmitResponse is returned after a graduate was stored.
type SubmitResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// LookupResponse is returned by the name lookup.
type LookupResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// HandleHome answers the liveness check.
//
// HTTP: GET /
func (h *GraduateHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(HomeMessage))
}

// HandleSubmit stores a new graduate.
//
// HTTP: GET or POST /submit_graduate
// REQUEST BODY: {"name": "...", "github_url": "...", "role": "...", "cv_link": "..."}
//
// RESPONSES:
//
//	201 {"id": 1, "message": "ada successfully added"}
//	400 body is not JSON, or a field is missing/empty
//	409 a graduate with that name already exists
//	500 the store failed
func (h *GraduateHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid graduate JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	g, err := h.service.Create(r.Context(), service.CreateGraduateInput{
		Name:      req.Name,
		GitHubURL: req.GitHubURL,
		Role:      req.Role,
		CVLink:    req.CVLink,
	})
	if err != nil {
		h.logError(r.Context(), "submit graduate", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		ID:      g.ID,
		Message: fmt.Sprintf("%s successfully added", g.Name),
	})
}

// HandleList returns every graduate with their GitHub profile.
//
// HTTP: GET or POST /allGraduates
//
// RESPONSE FORMAT:
//
//	[
//	  {"db_data": {"id":1,"name":"ada",...},
//	   "github_data": {"data": {"user": {"avatarUrl": "...", ...}}, "id": 1}},
//	  ...
//	]
//
// The listing is all or nothing: a graduate with an unusable URL gives 400,
// a failed GitHub call gives 502, and nothing partial is returned.
func (h *GraduateHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		h.logError(r.Context(), "list graduates", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profiles)
}

// HandleLookup returns the id stored for a name.
//
// HTTP: GET /graduates/lookup?name=ada
func (h *GraduateHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	id, err := h.service.LookupID(r.Context(), name)
	if err != nil {
		h.logError(r.Context(), "lookup graduate", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LookupResponse{ID: id, Name: name})
}

// logError logs client errors at warn and everything else at error.
func (h *GraduateHandler) logError(ctx context.Context, op string, err error) {
	status, _ := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}
