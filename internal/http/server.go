// Package http exposes the REST API the chat UI polls for session,
// message, and workflow state.
package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Dhuruvm/brevia/pkg/models"
	"github.com/Dhuruvm/brevia/pkg/orchestrator"
	"github.com/Dhuruvm/brevia/pkg/pipeline"
	"github.com/Dhuruvm/brevia/pkg/storage"
)

// Server holds the dependencies for the API server.
type Server struct {
	orch   *orchestrator.Orchestrator
	store  storage.Store
	logger pipeline.Logger
}

func NewServer(orch *orchestrator.Orchestrator, store storage.Store, logger pipeline.Logger) *Server {
	return &Server{orch: orch, store: store, logger: logger}
}

// Register mounts all routes on the echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.health)

	api := e.Group("/api")
	api.POST("/agents/execute", s.executeAgent)
	api.GET("/workflows/active", s.activeWorkflows)
	api.GET("/workflows/:id/status", s.workflowStatus)
	api.POST("/workflows/:id/cancel", s.cancelWorkflow)
	api.GET("/sessions", s.listSessions)
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id/messages", s.listMessages)
	api.POST("/sessions/:id/messages", s.postMessage)
}

// Start runs the HTTP server on the given port until it fails.
func Start(port int, orch *orchestrator.Orchestrator, store storage.Store, logger pipeline.Logger) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	NewServer(orch, store, logger).Register(e)
	logger.Infof("Starting Brevia server on :%d", port)
	return e.Start(fmt.Sprintf(":%d", port))
}

func (s *Server) health(c echo.Context) error {
	return c.String(http.StatusOK, "Brevia server is running")
}

type executeRequest struct {
	Task      string `json:"task"`
	SessionID string `json:"sessionId"`
	AgentType string `json:"agentType"`
}

type executeResponse struct {
	Success    bool                   `json:"success"`
	Content    string                 `json:"content"`
	AgentType  models.AgentType       `json:"agentType"`
	WorkflowID string                 `json:"workflowId"`
	Metadata   *models.ResultMetadata `json:"metadata,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (s *Server) executeAgent(c echo.Context) error {
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Task == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task is required")
	}
	if req.AgentType != "" && !models.ValidAgentType(req.AgentType) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown agent type '%s'", req.AgentType))
	}
	if req.SessionID != "" {
		if _, err := s.store.GetSession(req.SessionID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "session not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		s.appendUserMessage(req.SessionID, req.Task)
	}

	wf, err := s.orch.ExecuteTask(c.Request().Context(), req.Task, req.AgentType, req.SessionID)
	if err != nil {
		// A failed workflow is still a well-formed response: the error is
		// surfaced as content, mirroring the chat message the UI shows.
		return c.JSON(http.StatusOK, executeResponse{
			Success:    false,
			Content:    "Error: " + err.Error(),
			AgentType:  wf.AgentType,
			WorkflowID: wf.ID,
			Error:      err.Error(),
		})
	}

	resp := executeResponse{
		Success:    true,
		AgentType:  wf.AgentType,
		WorkflowID: wf.ID,
	}
	if wf.Result != nil {
		resp.Content = wf.Result.Content
		resp.Metadata = &wf.Result.Metadata
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) workflowStatus(c echo.Context) error {
	wf, err := s.orch.GetWorkflow(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, wf)
}

func (s *Server) activeWorkflows(c echo.Context) error {
	workflows, err := s.orch.ActiveWorkflows()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if workflows == nil {
		workflows = []models.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

func (s *Server) cancelWorkflow(c echo.Context) error {
	id := c.Param("id")
	if err := s.orch.CancelWorkflow(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
		}
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled", "workflow_id": id})
}

type createSessionRequest struct {
	Title string `json:"title"`
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	session := models.Session{
		ID:        uuid.NewString(),
		Title:     req.Title,
		CreatedAt: time.Now(),
	}
	if session.Title == "" {
		session.Title = "New chat"
	}
	if err := s.store.SaveSession(session); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) listSessions(c echo.Context) error {
	sessions, err := s.store.ListSessions()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

type postMessageRequest struct {
	Role     string            `json:"role"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (s *Server) postMessage(c echo.Context) error {
	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if req.Role == "" {
		req.Role = "user"
	}
	msg := models.Message{
		ID:        uuid.NewString(),
		SessionID: c.Param("id"),
		Role:      req.Role,
		Content:   req.Content,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveMessage(msg); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, msg)
}

func (s *Server) listMessages(c echo.Context) error {
	msgs, err := s.store.ListMessages(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

func (s *Server) appendUserMessage(sessionID, content string) {
	msg := models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveMessage(msg); err != nil {
		s.logger.Errorf("Failed to append user message to session %s: %v", sessionID, err)
	}
}
