// Package constants holds the wire-level enums shared across the orchestrator's
// packages, mirroring the single small constants file the teacher keeps for its
// own process-status enum.
package constants

// ProviderKind identifies which CLI agent a terminal's provider drives.
type ProviderKind string

const (
	ProviderQCli        ProviderKind = "q_cli"
	ProviderKiroCli     ProviderKind = "kiro_cli"
	ProviderClaudeCode  ProviderKind = "claude_code"
	ProviderCodex       ProviderKind = "codex"
	ProviderDroid       ProviderKind = "droid"
	ProviderOpenAutoGLM ProviderKind = "open_autoglm"
)

// MessageStatus is the lifecycle state of an inbox message.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "PENDING"
	MessageStatusDelivered MessageStatus = "DELIVERED"
	MessageStatusFailed    MessageStatus = "FAILED"
)

// OutputMode selects how much of a terminal's scrollback GetOutput returns.
type OutputMode string

const (
	OutputModeFull   OutputMode = "full"
	OutputModeRecent OutputMode = "recent"
	OutputModeLast   OutputMode = "last"
)

// RecentTailLines is the default scrollback window for OutputModeRecent.
const RecentTailLines = 100

// DefaultCircularBufferCapacity is the Log Reader's default line-buffer size (§3).
const DefaultCircularBufferCapacity = 100

// DefaultStatusTailLines bounds how many lines of scrollback a Provider
// examines when deciding status, per §4.D.
const DefaultStatusTailLines = 25

// InboxTailLines is the tail floor the scheduler's double-check status call uses (§4.G).
const InboxTailLines = 50
