package websocket

import "time"

// Commands a reader may send.
const (
	CommandNext            = "next"
	CommandPrevious        = "previous"
	CommandGoTo            = "goto"
	CommandToggleNarration = "toggle_narration"
	CommandSay             = "say"
	CommandNarrationEnded  = "narration_ended"
	CommandNarrationError  = "narration_error"
)

// Server messages that are not playback events.
const (
	MessageState = "state"
	MessageError = "error"
)

// Command is a reader's request.
type Command struct {
	Type        string `json:"type"`
	Index       *int   `json:"index,omitempty"`
	Text        string `json:"text,omitempty"`
	UtteranceID string `json:"utterance_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// State is sent on connect and whenever a command cannot be applied, so the
// reader can resynchronize.
type State struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	PageIndex int       `json:"page_index"`
	PageCount int       `json:"page_count"`
	Text      string    `json:"text,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Narrating bool      `json:"narrating"`
	Thinking  bool      `json:"thinking"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}
