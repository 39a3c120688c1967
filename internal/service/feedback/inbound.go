package feedback

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
)

var (
	ErrUnsupportedMessage = errors.New("unsupported message type")
	ErrInvalidMessage     = errors.New("invalid message")
)

const receivedAck = "Feedback received, thank you!"

// Pusher delivers outbound frames to whichever client is connected to a session.
type Pusher interface {
	Send(sessionID string, msg feedback.OutboundMessage) bool
}

// Router applies client frames to the session store and acknowledges them.
type Router struct {
	store  *Store
	pusher Pusher
	now    func() time.Time
}

// NewRouter builds an inbound router.
func NewRouter(store *Store, pusher Pusher) *Router {
	return &Router{store: store, pusher: pusher, now: time.Now}
}

// HandleClientMessage decodes a raw client frame and applies it.
func (r *Router) HandleClientMessage(sessionID string, raw []byte) error {
	var msg feedback.InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch msg.Type {
	case feedback.MessageUserFeedback:
		var data feedback.FeedbackData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
			}
		}
		return r.Submit(sessionID, data)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMessage, msg.Type)
	}
}

// Submit completes the session with the reply and, once the store has
// committed it, sends the receipt and completion notices.
func (r *Router) Submit(sessionID string, data feedback.FeedbackData) error {
	resp := feedback.Response{
		Text:       data.Text,
		Images:     normalizeAttachments(data.Images),
		Files:      normalizeAttachments(data.Files),
		ReceivedAt: r.now().UTC(),
	}

	completed, err := r.store.Complete(sessionID, resp)
	if err != nil {
		return err
	}
	if !completed {
		return ErrSessionClosed
	}

	log.Printf("[feedback] reply received session=%s images=%d files=%d", sessionID, len(resp.Images), len(resp.Files))

	r.pusher.Send(sessionID, feedback.FeedbackReceived(receivedAck))
	r.pusher.Send(sessionID, feedback.SessionComplete())
	return nil
}

func normalizeAttachments(items []feedback.Attachment) []feedback.Attachment {
	out := make([]feedback.Attachment, 0, len(items))
	for _, item := range items {
		out = append(out, normalizeAttachment(item))
	}
	return out
}

// normalizeAttachment fills Size and Type from the embedded payload when the
// client left them out.
func normalizeAttachment(a feedback.Attachment) feedback.Attachment {
	if a.Data == "" || (a.Size > 0 && a.Type != "") {
		return a
	}

	raw, mediaType, err := decodeAttachmentData(a.Data)
	if err != nil {
		log.Printf("[feedback] attachment %q not decodable: %v", a.Name, err)
		return a
	}

	if a.Size == 0 {
		a.Size = int64(len(raw))
	}
	if a.Type == "" {
		if mediaType != "" {
			a.Type = mediaType
		} else {
			a.Type = mimetype.Detect(raw).String()
		}
	}
	return a
}

// decodeAttachmentData accepts either a data URL or bare base64.
func decodeAttachmentData(data string) ([]byte, string, error) {
	payload := data
	mediaType := ""

	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		meta, body, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("malformed data url")
		}
		params := strings.Split(meta, ";")
		mediaType = params[0]
		if params[len(params)-1] != "base64" {
			return []byte(body), mediaType, nil
		}
		payload = body
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	return raw, mediaType, nil
}
