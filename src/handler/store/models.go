package store

import (
	"time"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/constants"
)

// Terminal is the persisted row backing one Terminal (§3).
type Terminal struct {
	ID           string                 `json:"id"`
	Session      string                 `json:"session"`
	Window       string                 `json:"window"`
	ProviderKind constants.ProviderKind `json:"provider_kind"`
	AgentProfile string                 `json:"agent_profile,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// InboxMessage is the persisted row backing one Inbox Message (§3).
type InboxMessage struct {
	ID          string                  `json:"id"`
	ReceiverID  string                  `json:"receiver_id"`
	SenderID    string                  `json:"sender_id"`
	Body        string                  `json:"body"`
	Status      constants.MessageStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	DeliveredAt *time.Time              `json:"delivered_at,omitempty"`
}
