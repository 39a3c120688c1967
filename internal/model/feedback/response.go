package feedback

import "time"

// Attachment is an image or file sent along with a reply. Data holds either raw
// base64 or a data URL, exactly as the UI uploaded it.
type Attachment struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
	Data string `json:"data,omitempty"`
}

// Response is the human's reply to a session.
type Response struct {
	Text       string       `json:"text"`
	Images     []Attachment `json:"images"`
	Files      []Attachment `json:"files"`
	ReceivedAt time.Time    `json:"receivedAt"`
}
