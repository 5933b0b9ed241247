package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/terminalsvc"
	"github.com/yubing744/cli-agent-orchestrator/src/lib"
)

// TerminalHandler exposes the Terminal Service's operations over HTTP
// (§6 Control API).
type TerminalHandler struct {
	*BaseHandler
	svc *terminalsvc.Service
}

// NewTerminalHandler constructs a TerminalHandler bound to svc.
func NewTerminalHandler(svc *terminalsvc.Service) *TerminalHandler {
	return &TerminalHandler{BaseHandler: NewBaseHandler(), svc: svc}
}

type createTerminalRequest struct {
	AgentProfile string `json:"agent_profile" binding:"required"`
	ProviderKind string `json:"provider_kind"`
	SessionName  string `json:"session_name"`
}

// HandleCreateTerminal godoc
// @Summary      Create a terminal
// @Description  Creates a tmux-backed terminal and launches the requested CLI agent provider in it
// @Tags         terminals
// @Accept       json
// @Produce      json
// @Param        body body createTerminalRequest true "terminal parameters"
// @Success      201 {object} store.Terminal
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /terminals [post]
func (h *TerminalHandler) HandleCreateTerminal(c *gin.Context) {
	var req createTerminalRequest
	if err := h.BindJSON(c, &req); err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	kind := constants.ProviderKind(req.ProviderKind)
	if kind == "" {
		kind = constants.ProviderClaudeCode
	}

	t, err := h.svc.CreateTerminal(c.Request.Context(), kind, req.AgentProfile, req.SessionName)
	if err != nil {
		h.sendProviderError(c, err)
		return
	}

	h.SendJSON(c, http.StatusCreated, t)
}

// HandleListTerminals godoc
// @Summary      List all terminals
// @Tags         terminals
// @Produce      json
// @Success      200 {array} store.Terminal
// @Router       /terminals [get]
func (h *TerminalHandler) HandleListTerminals(c *gin.Context) {
	terminals, err := h.svc.ListTerminals(c.Request.Context())
	if err != nil {
		h.SendError(c, http.StatusInternalServerError, err)
		return
	}
	h.SendJSON(c, http.StatusOK, terminals)
}

// HandleGetTerminal godoc
// @Summary      Get a terminal
// @Tags         terminals
// @Produce      json
// @Param        id path string true "terminal id"
// @Success      200 {object} store.Terminal
// @Failure      404 {object} ErrorResponse
// @Router       /terminals/{id} [get]
func (h *TerminalHandler) HandleGetTerminal(c *gin.Context) {
	id, err := h.GetPathParam(c, "id")
	if err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	t, err := h.svc.GetTerminal(c.Request.Context(), id)
	if err != nil {
		h.sendProviderError(c, err)
		return
	}
	h.SendJSON(c, http.StatusOK, t)
}

// HandleDeleteTerminal godoc
// @Summary      Destroy a terminal
// @Tags         terminals
// @Param        id path string true "terminal id"
// @Success      200 {object} SuccessResponse
// @Failure      404 {object} ErrorResponse
// @Router       /terminals/{id} [delete]
func (h *TerminalHandler) HandleDeleteTerminal(c *gin.Context) {
	id, err := h.GetPathParam(c, "id")
	if err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	if err := h.svc.DestroyTerminal(c.Request.Context(), id); err != nil {
		h.sendProviderError(c, err)
		return
	}
	h.SendSuccess(c, "terminal destroyed")
}

type sendInputRequest struct {
	Text string `json:"text" binding:"required"`
}

// HandleSendInput godoc
// @Summary      Send raw keystrokes to a terminal
// @Tags         terminals
// @Accept       json
// @Param        id path string true "terminal id"
// @Param        body body sendInputRequest true "text to send"
// @Success      200 {object} SuccessResponse
// @Failure      404 {object} ErrorResponse
// @Router       /terminals/{id}/input [post]
func (h *TerminalHandler) HandleSendInput(c *gin.Context) {
	id, err := h.GetPathParam(c, "id")
	if err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	var req sendInputRequest
	if err := h.BindJSON(c, &req); err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	if err := h.svc.SendInput(c.Request.Context(), id, req.Text); err != nil {
		h.sendProviderError(c, err)
		return
	}
	h.SendSuccess(c, "input sent")
}

// HandleGetOutput godoc
// @Summary      Get terminal output
// @Tags         terminals
// @Produce      json
// @Param        id path string true "terminal id"
// @Param        mode query string false "full|recent|last" default(full)
// @Success      200 {object} map[string]string
// @Failure      404 {object} ErrorResponse
// @Router       /terminals/{id}/output [get]
func (h *TerminalHandler) HandleGetOutput(c *gin.Context) {
	id, err := h.GetPathParam(c, "id")
	if err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	mode := constants.OutputMode(h.GetQueryParam(c, "mode", string(constants.OutputModeFull)))

	output, err := h.svc.GetOutput(c.Request.Context(), id, mode)
	if err != nil {
		h.sendProviderError(c, err)
		return
	}
	h.SendJSON(c, http.StatusOK, gin.H{"output": output})
}

// HandleListSessions godoc
// @Summary      List distinct session names
// @Tags         sessions
// @Produce      json
// @Success      200 {array} string
// @Router       /sessions [get]
func (h *TerminalHandler) HandleListSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		h.SendError(c, http.StatusInternalServerError, err)
		return
	}
	h.SendJSON(c, http.StatusOK, sessions)
}

// HandleListSessionTerminals godoc
// @Summary      List terminals in a session
// @Tags         sessions
// @Produce      json
// @Param        session path string true "session name"
// @Success      200 {array} store.Terminal
// @Router       /sessions/{session}/terminals [get]
func (h *TerminalHandler) HandleListSessionTerminals(c *gin.Context) {
	session, err := h.GetPathParam(c, "session")
	if err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	terminals, err := h.svc.ListSessionTerminals(c.Request.Context(), session)
	if err != nil {
		h.SendError(c, http.StatusInternalServerError, err)
		return
	}
	h.SendJSON(c, http.StatusOK, terminals)
}

// sendProviderError maps the error taxonomy (§7) to HTTP status codes.
func (h *TerminalHandler) sendProviderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lib.ErrUnknownTerminal):
		h.SendError(c, http.StatusNotFound, err)
	case errors.Is(err, lib.ErrMultiplexerUnavailable):
		h.SendError(c, http.StatusBadGateway, err)
	case errors.Is(err, lib.ErrParseNoResponse), errors.Is(err, lib.ErrParseEmptyResponse):
		h.SendError(c, http.StatusUnprocessableEntity, err)
	default:
		h.SendError(c, http.StatusInternalServerError, err)
	}
}
