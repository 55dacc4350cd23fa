// Package hooks maps coding-assistant hook events to dashboard updates.
package hooks

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// Hook event names emitted by the assistant.
const (
	EventSessionStart     = "SessionStart"
	EventUserPromptSubmit = "UserPromptSubmit"
	EventPreToolUse       = "PreToolUse"
	EventNotification     = "Notification"
	EventStop             = "Stop"
	EventSessionEnd       = "SessionEnd"
)

// maxEventBytes caps how much of stdin is read.
const maxEventBytes = 1 << 20

// Event is the JSON payload the assistant writes to a hook's stdin.
type Event struct {
	HookEventName  string `json:"hook_event_name"`
	SessionID      string `json:"session_id,omitempty"`
	CWD            string `json:"cwd,omitempty"`
	Source         string `json:"source,omitempty"`
	Message        string `json:"message,omitempty"`
	ToolName       string `json:"tool_name,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
}

// ParseEvent decodes a hook event from r.
func ParseEvent(r io.Reader) (Event, error) {
	var ev Event
	data, err := io.ReadAll(io.LimitReader(r, maxEventBytes))
	if err != nil {
		return ev, fmt.Errorf("reading hook event: %w", err)
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("decoding hook event: %w", err)
	}
	if ev.HookEventName == "" {
		return ev, fmt.Errorf("decoding hook event: hook_event_name is missing")
	}
	return ev, nil
}

// ActionKind says what a hook event does to the dashboard.
type ActionKind int

const (
	// ActionNone ignores the event.
	ActionNone ActionKind = iota
	// ActionRegister registers (or re-registers) the session.
	ActionRegister
	// ActionStatus sets the session status.
	ActionStatus
)

// Action is the dashboard call derived from one hook event.
type Action struct {
	Kind   ActionKind
	Status model.Status
	Source string
}

// Map returns the action for ev. Unknown events map to ActionNone.
func Map(ev Event) Action {
	switch ev.HookEventName {
	case EventSessionStart:
		return Action{Kind: ActionRegister, Source: ev.Source}
	case EventUserPromptSubmit, EventPreToolUse:
		return Action{Kind: ActionStatus, Status: model.StatusBusy}
	case EventNotification:
		return Action{Kind: ActionStatus, Status: model.StatusWaiting}
	case EventStop, EventSessionEnd:
		return Action{Kind: ActionStatus, Status: model.StatusIdle}
	}
	return Action{Kind: ActionNone}
}
