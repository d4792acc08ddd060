package versions

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-sync/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches version-store routes to the router group. The two
// GET shapes /resume/{id}/versions and /resume/version/{versionId} share a
// prefix that gin's routing tree cannot hold as separate routes, so both are
// served by one parameterized route and dispatched by hand.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resumes", h.listResumes)
	rg.GET("/resume/:id/:action", h.resumeAction)
	rg.POST("/resume/save", h.save)
}

type resumeResponse struct {
	ID              string `json:"id"`
	LatestVersionID string `json:"latest_version_id"`
	Template        string `json:"template"`
}

type versionSummaryResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type versionResponse struct {
	ResumeData json.RawMessage `json:"resume_data"`
}

type saveRequest struct {
	ResumeID   string          `json:"resume_id"`
	User       string          `json:"user"`
	Template   string          `json:"template"`
	ResumeData json.RawMessage `json:"resume_data"`
}

type saveResponse struct {
	ResumeID  string `json:"resume_id"`
	VersionID string `json:"version_id"`
}

func (h *Handler) listResumes(c *gin.Context) {
	user := c.Query("user")

	resumes, err := h.Svc.ListResumes(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "user is required", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}

	out := make([]resumeResponse, 0, len(resumes))
	for _, resume := range resumes {
		out = append(out, resumeResponse{
			ID:              resume.ID,
			LatestVersionID: resume.LatestVersionID,
			Template:        resume.Template,
		})
	}
	respond.OK(c, out)
}

func (h *Handler) resumeAction(c *gin.Context) {
	id := c.Param("id")
	action := c.Param("action")

	switch {
	case id == "version":
		h.getVersion(c, action)
	case action == "versions":
		h.listVersions(c, id)
	default:
		respond.Error(c, http.StatusNotFound, "not_found", "unknown resource", nil)
	}
}

func (h *Handler) listVersions(c *gin.Context, resumeID string) {
	list, err := h.Svc.ListVersions(c.Request.Context(), resumeID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "resume id is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list versions", nil)
		}
		return
	}

	out := make([]versionSummaryResponse, 0, len(list))
	for _, version := range list {
		out = append(out, versionSummaryResponse{ID: version.ID, CreatedAt: version.CreatedAt})
	}
	respond.OK(c, out)
}

func (h *Handler) getVersion(c *gin.Context, versionID string) {
	version, err := h.Svc.GetVersion(c.Request.Context(), versionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "version not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "version id is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load version", nil)
		}
		return
	}
	respond.OK(c, versionResponse{ResumeData: version.Data})
}

func (h *Handler) save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	out, err := h.Svc.Save(c.Request.Context(), SaveInput{
		ResumeID: req.ResumeID,
		UserID:   req.User,
		Template: req.Template,
		Data:     req.ResumeData,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "user and resume_data are required", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save version", nil)
		return
	}

	respond.Created(c, saveResponse{ResumeID: out.ResumeID, VersionID: out.VersionID})
}
