package feedback

import "encoding/json"

// Message types exchanged with the feedback UI.
const (
	MessageUserFeedback     = "user_feedback"
	MessageAgentMessage     = "agent_message"
	MessageFeedbackReceived = "feedback_received"
	MessageSessionComplete  = "session_complete"
)

// InboundMessage is a client-to-server frame.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// FeedbackData is the payload of a user_feedback frame and of the HTTP submit body.
type FeedbackData struct {
	Text   string       `json:"text"`
	Images []Attachment `json:"images"`
	Files  []Attachment `json:"files"`
}

// OutboundMessage is a server-to-client frame.
type OutboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// AgentMessage carries the work summary the agent wants reviewed.
func AgentMessage(content string) OutboundMessage {
	return OutboundMessage{Type: MessageAgentMessage, Content: content}
}

// FeedbackReceived acknowledges a reply.
func FeedbackReceived(message string) OutboundMessage {
	return OutboundMessage{Type: MessageFeedbackReceived, Message: message}
}

// SessionComplete tells the client no further input is expected.
func SessionComplete() OutboundMessage {
	return OutboundMessage{Type: MessageSessionComplete}
}
