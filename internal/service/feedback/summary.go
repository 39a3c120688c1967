package feedback

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
)

// Result is the outcome of RequestFeedback.
type Result struct {
	SessionID   string
	FeedbackURL string
	Status      feedback.Status
	Response    *feedback.Response
}

// TimedOut reports whether the wait ended without a reply.
func (r Result) TimedOut() bool {
	return r.Status == feedback.StatusExpired
}

// Text renders the result for the calling agent.
func (r Result) Text() string {
	var b strings.Builder

	switch r.Status {
	case feedback.StatusCompleted:
		resp := r.Response
		fmt.Fprintf(&b, "User feedback received:\n\n**Text:**\n%s\n\n", resp.Text)
		fmt.Fprintf(&b, "**Images:** %d\n**Files:** %d\n", len(resp.Images), len(resp.Files))
		if size := attachmentBytes(resp); size > 0 {
			fmt.Fprintf(&b, "**Attachment size:** %s\n", humanize.Bytes(uint64(size)))
		}
	case feedback.StatusExpired:
		fmt.Fprintf(&b, "Timed out waiting for user feedback. Please provide feedback at:\n%s\n", r.FeedbackURL)
	default:
		fmt.Fprintf(&b, "Feedback collection started. The user can respond at:\n%s\n", r.FeedbackURL)
	}

	fmt.Fprintf(&b, "\n**Session ID:** %s", r.SessionID)
	return b.String()
}

func attachmentBytes(resp *feedback.Response) int64 {
	size := func(a feedback.Attachment) int64 { return a.Size }
	return lo.SumBy(resp.Images, size) + lo.SumBy(resp.Files, size)
}
