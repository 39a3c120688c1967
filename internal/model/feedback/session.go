package feedback

import "time"

// Status tracks where a feedback session is in its lifecycle.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Session is a single request for human feedback on a piece of agent work.
type Session struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	ClosedAt  time.Time `json:"closedAt,omitzero"`
	Response  *Response `json:"response,omitempty"`
}

// Summary is the pull-style view served to the web UI.
type Summary struct {
	SessionID   string  `json:"session_id"`
	Question    string  `json:"question"`
	Status      Status  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	Response    *string `json:"response"`
	ImagesCount int     `json:"images_count"`
	FilesCount  int     `json:"files_count"`
}

// Summarize builds the UI summary for the session.
func (s Session) Summarize() Summary {
	summary := Summary{
		SessionID: s.ID,
		Question:  s.Prompt,
		Status:    s.Status,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
	if s.Response != nil {
		text := s.Response.Text
		summary.Response = &text
		summary.ImagesCount = len(s.Response.Images)
		summary.FilesCount = len(s.Response.Files)
	}
	return summary
}
