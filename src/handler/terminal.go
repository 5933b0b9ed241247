package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/terminalsvc"
)

// TerminalWSHandler streams a terminal's live multiplexer output over a
// WebSocket, adapted from the teacher's browser-terminal viewer
// (src/handler/terminal.go) to stream a terminal-id's scrollback instead of
// a raw interactive shell session. Only meaningful when the backend is the
// PTYBackend (dev/test multiplexer) — it is the only backend with an
// in-process Subscribe/ReplayBuffer stream to view; a tmux-backed viewer
// would instead run `tmux attach` directly against the session.
type TerminalWSHandler struct {
	*BaseHandler
	svc      *terminalsvc.Service
	ptyMux   *multiplexer.PTYBackend // nil when running against the tmux backend
	upgrader websocket.Upgrader
}

// NewTerminalWSHandler constructs a TerminalWSHandler. ptyMux may be nil if
// the active Multiplexer is not PTY-backed, in which case HandleTerminalWS
// responds with 501.
func NewTerminalWSHandler(svc *terminalsvc.Service, ptyMux *multiplexer.PTYBackend) *TerminalWSHandler {
	return &TerminalWSHandler{
		BaseHandler: NewBaseHandler(),
		svc:         svc,
		ptyMux:      ptyMux,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// TerminalMessage represents a message sent over the live-viewer WebSocket.
type TerminalMessage struct {
	Type string `json:"type"` // "output", "resize", "error"
	Data string `json:"data,omitempty"`
	Cols uint16 `json:"cols,omitempty"`
	Rows uint16 `json:"rows,omitempty"`
}

// HandleTerminalWS godoc
// @Summary      Stream a terminal's live output
// @Description  WebSocket stream of a terminal's scrollback; only available when the orchestrator is running against the PTY dev/test multiplexer backend
// @Tags         terminals
// @Param        id path string true "terminal id"
// @Router       /terminals/{id}/ws [get]
func (h *TerminalWSHandler) HandleTerminalWS(c *gin.Context) {
	if h.ptyMux == nil {
		h.SendError(c, http.StatusNotImplemented, errLiveViewerUnavailable)
		return
	}

	id, err := h.GetPathParam(c, "id")
	if err != nil {
		h.SendError(c, http.StatusBadRequest, err)
		return
	}

	t, err := h.svc.GetTerminal(c.Request.Context(), id)
	if err != nil {
		(&TerminalHandler{BaseHandler: h.BaseHandler}).sendProviderError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("failed to upgrade websocket")
		return
	}
	defer conn.Close()

	sub, err := h.ptyMux.Subscribe(t.Session, t.Window)
	if err != nil {
		_ = conn.WriteJSON(TerminalMessage{Type: "error", Data: err.Error()})
		return
	}
	defer h.ptyMux.Unsubscribe(t.Session, t.Window, sub)

	if buffered, err := h.ptyMux.ReplayBuffer(t.Session, t.Window); err == nil && len(buffered) > 0 {
		_ = conn.WriteJSON(TerminalMessage{Type: "output", Data: string(buffered)})
	}

	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(done) }) }

	go func() {
		for {
			select {
			case data, ok := <-sub.Ch:
				if !ok {
					closeDone()
					return
				}
				if err := conn.WriteJSON(TerminalMessage{Type: "output", Data: string(data)}); err != nil {
					closeDone()
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			closeDone()
			return
		}

		var msg TerminalMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logrus.WithError(err).Warn("invalid terminal viewer message")
			continue
		}

		if msg.Type == "resize" && msg.Cols > 0 && msg.Rows > 0 {
			if err := h.ptyMux.Resize(t.Session, t.Window, msg.Cols, msg.Rows); err != nil {
				logrus.WithError(err).Warn("failed to resize pty")
			}
		}
	}
}

var errLiveViewerUnavailable = &liveViewerUnavailableError{}

type liveViewerUnavailableError struct{}

func (e *liveViewerUnavailableError) Error() string {
	return "live terminal viewer is only available with the PTY multiplexer backend"
}
