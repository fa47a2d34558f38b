package model

// RunEventType identifies a run event.
type RunEventType string

const (
	RunEventCompleted RunEventType = "run.completed"
)

// RunEvent is the message payload published after a run finishes.
type RunEvent struct {
	Type      RunEventType `json:"type"`
	Result    RunResult    `json:"result"`
	CreatedAt int64        `json:"created_at"`
}
