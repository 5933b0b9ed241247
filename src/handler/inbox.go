package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/store"
)

// InboxHandler exposes the Inbox Message queue over HTTP (§6).
type InboxHandler struct {
	*BaseHandler
	store *store.Store
}

// NewInboxHandler constructs an InboxHandler bound to st.
func NewInboxHandler(st *store.Store) *InboxHandler {
	return &InboxHandler{BaseHandler: NewBaseHandler(), store: st}
}

type enqueueMessageRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
	Body     string `json:"body" binding:"required"`
}

// HandleEnqueueMessage godoc
// @Summary      Enqueue an inbox message for a terminal
// @Tags         inbox
// @Accept       json
// @Param        id path string true "receiver terminal id"
// @Param        body body enqueueMessageRequest true "message"
// @Success      201 {object} store.InboxMessage
// @Failure      400 {object} ErrorResponse
// @Router       /terminals/{id}/inbox [post]
func (h *InboxHandler) HandleEnqueueMessage(c *gin.Context) {
	receiverID, err := h.GetPathParam(c, "id")
	if err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	var req enqueueMessageRequest
	if err := h.BindJSON(c, &req); err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	m := &store.InboxMessage{
		ID:         uuid.New().String(),
		ReceiverID: receiverID,
		SenderID:   req.SenderID,
		Body:       req.Body,
		Status:     constants.MessageStatusPending,
		CreatedAt:  time.Now(),
	}

	if err := h.store.EnqueueMessage(m); err != nil {
		h.SendError(c, http.StatusInternalServerError, err)
		return
	}

	h.SendJSON(c, http.StatusCreated, m)
}

// HandleListMessages godoc
// @Summary      List inbox messages for a terminal
// @Tags         inbox
// @Produce      json
// @Param        id path string true "terminal id"
// @Param        status query string false "PENDING|DELIVERED|FAILED"
// @Param        limit query int false "max results"
// @Success      200 {array} store.InboxMessage
// @Router       /terminals/{id}/inbox [get]
func (h *InboxHandler) HandleListMessages(c *gin.Context) {
	id, err := h.GetPathParam(c, "id")
	if err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	status := constants.MessageStatus(h.GetQueryParam(c, "status", ""))
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = n
		}
	}

	messages, err := h.store.ListMessages(id, status, limit)
	if err != nil {
		h.SendError(c, http.StatusInternalServerError, err)
		return
	}
	h.SendJSON(c, http.StatusOK, messages)
}
