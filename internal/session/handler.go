package session

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-sync/internal/collab"
	"resume-sync/internal/document"
	"resume-sync/internal/imports"
	"resume-sync/internal/persistence"
	"resume-sync/internal/scoring"
	"resume-sync/internal/shared/server/respond"
)

// Handler wires the editing-session HTTP surface to the registry.
type Handler struct {
	Sessions  *Registry
	Uploads   *imports.UploadStage
	JobLink   *imports.JobLink
	Scorer    *scoring.Resolver
	KeepAlive time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(sessions *Registry, uploads *imports.UploadStage, jobLink *imports.JobLink, scorer *scoring.Resolver, keepAlive time.Duration) *Handler {
	return &Handler{
		Sessions:  sessions,
		Uploads:   uploads,
		JobLink:   jobLink,
		Scorer:    scorer,
		KeepAlive: keepAlive,
	}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads", h.stageUpload)

	rg.POST("/sessions", h.create)
	rg.DELETE("/sessions/:sessionId", h.close)

	rg.GET("/sessions/:sessionId/document", h.getDocument)
	rg.PUT("/sessions/:sessionId/document", h.applyEdit)
	rg.POST("/sessions/:sessionId/undo", h.undo)
	rg.POST("/sessions/:sessionId/redo", h.redo)
	rg.POST("/sessions/:sessionId/save", h.save)
	rg.POST("/sessions/:sessionId/flush", h.flush)
	rg.POST("/sessions/:sessionId/wizard", h.wizard)

	rg.PUT("/sessions/:sessionId/template", h.setTemplate)
	rg.PUT("/sessions/:sessionId/layout", h.setLayout)
	rg.PUT("/sessions/:sessionId/job", h.setJob)
	rg.GET("/sessions/:sessionId/score", h.lastScore)

	rg.POST("/sessions/:sessionId/room", h.joinRoom)
	rg.DELETE("/sessions/:sessionId/room", h.leaveRoom)
	rg.GET("/sessions/:sessionId/events", h.streamEvents)
	rg.GET("/sessions/:sessionId/participants", h.participants)

	rg.GET("/sessions/:sessionId/comments", h.listComments)
	rg.POST("/sessions/:sessionId/comments", h.addComment)
	rg.POST("/sessions/:sessionId/comments/:commentId/resolve", h.resolveComment)
	rg.DELETE("/sessions/:sessionId/comments/:commentId", h.deleteComment)
}

func (h *Handler) engine(c *gin.Context) (*Engine, bool) {
	engine, err := h.Sessions.Get(c.Param("sessionId"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "unknown session", nil)
		return nil, false
	}
	return engine, true
}

type createRequest struct {
	Owner       string `json:"owner"`
	ResumeID    string `json:"resumeId"`
	VersionID   string `json:"versionId"`
	UploadToken string `json:"uploadToken"`
	JobID       string `json:"jobId"`
	New         bool   `json:"new"`
	RoomID      string `json:"roomId"`
	UserName    string `json:"userName"`
}

type sessionState struct {
	SessionID string            `json:"sessionId"`
	Document  document.Document `json:"document"`
	CanUndo   bool              `json:"canUndo"`
	CanRedo   bool              `json:"canRedo"`
	Template  string            `json:"template,omitempty"`
}

func (h *Handler) state(engine *Engine) sessionState {
	return sessionState{
		SessionID: engine.ID(),
		Document:  engine.Document(),
		CanUndo:   engine.CanUndo(),
		CanRedo:   engine.CanRedo(),
		Template:  engine.Bridge().Template(),
	}
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Owner == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "owner is required", nil)
		return
	}

	engine := h.Sessions.Create(req.Owner)
	ctx := c.Request.Context()

	_, source, err := engine.Load(ctx, persistence.LoadRequest{
		ResumeID:    req.ResumeID,
		VersionID:   req.VersionID,
		UploadToken: req.UploadToken,
		ForceNew:    req.New,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load session", nil)
		return
	}

	if h.JobLink != nil {
		if _, err := h.JobLink.Resolve(ctx, req.Owner, req.JobID); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to resolve job link", nil)
			return
		}
	}

	if req.RoomID != "" {
		if err := engine.Connect(req.RoomID, req.UserName); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to join room", nil)
			return
		}
	}

	state := h.state(engine)
	respond.Created(c, gin.H{
		"sessionId": state.SessionID,
		"document":  state.Document,
		"canUndo":   state.CanUndo,
		"canRedo":   state.CanRedo,
		"template":  state.Template,
		"source":    string(source),
	})
}

func (h *Handler) close(c *gin.Context) {
	if err := h.Sessions.Close(c.Request.Context(), c.Param("sessionId")); err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "unknown session", nil)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) getDocument(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	respond.OK(c, h.state(engine))
}

func (h *Handler) applyEdit(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var doc document.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid document body", nil)
		return
	}

	engine.Apply(doc)
	respond.OK(c, h.state(engine))
}

func (h *Handler) undo(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	_, stepped := engine.Undo()
	state := h.state(engine)
	respond.OK(c, gin.H{
		"stepped":  stepped,
		"document": state.Document,
		"canUndo":  state.CanUndo,
		"canRedo":  state.CanRedo,
	})
}

func (h *Handler) redo(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	_, stepped := engine.Redo()
	state := h.state(engine)
	respond.OK(c, gin.H{
		"stepped":  stepped,
		"document": state.Document,
		"canUndo":  state.CanUndo,
		"canRedo":  state.CanRedo,
	})
}

func (h *Handler) save(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	result, err := engine.Save(c.Request.Context())
	if err != nil {
		if errors.Is(err, persistence.ErrNoRemote) {
			respond.Error(c, http.StatusConflict, "no_remote", "remote document service not configured", nil)
			return
		}
		respond.Error(c, http.StatusBadGateway, "remote_error", "failed to save to remote service", nil)
		return
	}
	respond.OK(c, gin.H{"resumeId": result.ResumeID, "versionId": result.VersionID})
}

func (h *Handler) flush(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	engine.Flush(c.Request.Context())
	respond.NoContent(c)
}

func (h *Handler) wizard(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var answers imports.WizardAnswers
	if err := c.ShouldBindJSON(&answers); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid wizard body", nil)
		return
	}

	doc, template := imports.BuildWizardDocument(answers)
	engine.ApplyImport(c.Request.Context(), doc, template)
	respond.OK(c, h.state(engine))
}

func (h *Handler) setTemplate(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req struct {
		Template string `json:"template"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Template == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "template is required", nil)
		return
	}

	engine.Bridge().SetTemplate(c.Request.Context(), req.Template)
	respond.NoContent(c)
}

func (h *Handler) setLayout(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req struct {
		TwoColumn bool `json:"twoColumn"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid layout body", nil)
		return
	}

	engine.Bridge().SetTwoColumn(c.Request.Context(), req.TwoColumn)
	respond.NoContent(c)
}

func (h *Handler) setJob(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	if h.JobLink == nil {
		respond.Error(c, http.StatusConflict, "no_job_link", "job link resolution not configured", nil)
		return
	}

	var req struct {
		JobID   string `json:"jobId"`
		JobText string `json:"jobText"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid job body", nil)
		return
	}

	ctx := c.Request.Context()
	jobID, err := h.JobLink.Resolve(ctx, engine.Owner(), req.JobID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to resolve job link", nil)
		return
	}
	if req.JobText != "" {
		if err := h.JobLink.SetJobText(ctx, engine.Owner(), req.JobText); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store job text", nil)
			return
		}
	}

	if h.Scorer != nil && jobID != "" {
		jobText, err := h.JobLink.JobText(ctx, engine.Owner())
		if err == nil && jobText != "" {
			h.Scorer.Trigger(engine.Owner(), jobText)
		}
	}

	respond.OK(c, gin.H{"jobId": jobID})
}

func (h *Handler) lastScore(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	if h.Scorer == nil {
		respond.Error(c, http.StatusConflict, "no_scorer", "scoring not configured", nil)
		return
	}

	result, found, err := h.Scorer.LastScore(c.Request.Context(), engine.Owner())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read last score", nil)
		return
	}
	if !found {
		respond.Error(c, http.StatusNotFound, "not_found", "no score recorded", nil)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) stageUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	token, err := h.Uploads.Stage(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, imports.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid upload", nil)
		case errors.Is(err, imports.ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", "unsupported file type", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to stage upload", nil)
		}
		return
	}

	respond.Created(c, gin.H{"token": token})
}

type joinRoomRequest struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

func (h *Handler) joinRoom(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "roomId is required", nil)
		return
	}

	if err := engine.Connect(req.RoomID, req.UserName); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to join room", nil)
		return
	}
	respond.OK(c, gin.H{
		"roomId": req.RoomID,
		"userId": engine.Synchronizer().UserID(),
	})
}

func (h *Handler) leaveRoom(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	if engine.Synchronizer() != nil {
		engine.Synchronizer().Disconnect()
	}
	respond.NoContent(c)
}

// streamEvents delivers the session's inbound room events over SSE, with a
// periodic comment line to keep intermediaries from closing the connection.
func (h *Handler) streamEvents(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	sync := engine.Synchronizer()
	if sync == nil || !sync.IsConnected() {
		respond.Error(c, http.StatusConflict, "not_connected", "session is not in a room", nil)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "streaming unsupported", nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := sync.Tap()
	defer cancel()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 20 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSE(c, flusher, ev)
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(c *gin.Context, flusher http.Flusher, ev collab.Event) {
	c.SSEvent(string(ev.Type), ev)
	flusher.Flush()
}

func (h *Handler) participants(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	sync := engine.Synchronizer()
	if sync == nil {
		respond.OK(c, []collab.Participant{})
		return
	}
	respond.OK(c, sync.Participants())
}

func (h *Handler) listComments(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	sync := engine.Synchronizer()
	if sync == nil {
		respond.OK(c, []collab.Comment{})
		return
	}
	respond.OK(c, sync.Comments())
}

type addCommentRequest struct {
	Text       string `json:"text"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
}

func (h *Handler) addComment(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	sync := engine.Synchronizer()

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}

	if sync == nil {
		respond.Error(c, http.StatusConflict, "not_connected", "session is not in a room", nil)
		return
	}
	comment, err := sync.AddComment(req.Text, req.TargetType, req.TargetID)
	if err != nil {
		respond.Error(c, http.StatusConflict, "not_connected", "session is not in a room", nil)
		return
	}
	respond.Created(c, comment)
}

func (h *Handler) resolveComment(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	sync := engine.Synchronizer()
	if sync == nil {
		respond.Error(c, http.StatusConflict, "not_connected", "session is not in a room", nil)
		return
	}
	if err := sync.ResolveComment(c.Param("commentId")); err != nil {
		respond.Error(c, http.StatusConflict, "not_connected", "session is not in a room", nil)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) deleteComment(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	sync := engine.Synchronizer()
	if sync == nil {
		respond.Error(c, http.StatusConflict, "not_connected", "session is not in a room", nil)
		return
	}
	if err := sync.DeleteComment(c.Param("commentId")); err != nil {
		respond.Error(c, http.StatusConflict, "not_connected", "session is not in a room", nil)
		return
	}
	respond.NoContent(c)
}
