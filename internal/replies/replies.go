// Package replies cross-references inbox messages against the send log to
// report which contacted investors wrote back.
package replies

import (
	"context"
	"regexp"
	"strings"

	"github.com/founderkit/outreach/internal/transport"
)

// replyMarker flags a subject as a reply. Matched anywhere in the subject,
// not anchored to the front; this is intentionally permissive and can catch
// forwarded or quoted subjects too.
const replyMarker = "Re:"

// addrPattern extracts the bare address from an angle-bracketed From header
// such as "Jane <jane@x.com>".
var addrPattern = regexp.MustCompile(`<(.+?)>`)

// Reply is one inbox message from a known past recipient. It is derived on
// demand and never persisted.
type Reply struct {
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Snippet   string `json:"snippet"`
	Timestamp int64  `json:"timestamp"`
}

// Fetch lists the inbox and returns one Reply per reply-marked message whose
// sender is in knownRecipients. Messages without a Subject header, without the
// reply marker, or from unknown senders are skipped.
func Fetch(ctx context.Context, t transport.Transport, knownRecipients map[string]struct{}) ([]Reply, error) {
	refs, err := t.ListInbox(ctx)
	if err != nil {
		return nil, err
	}

	replies := []Reply{}
	for _, ref := range refs {
		msg, err := t.GetMessage(ctx, ref.ID)
		if err != nil {
			return nil, err
		}

		subject := msg.Header("Subject")
		if subject == "" || !strings.Contains(subject, replyMarker) {
			continue
		}

		from := msg.Header("From")
		if _, known := knownRecipients[extractAddress(from)]; !known {
			continue
		}

		replies = append(replies, Reply{
			From:      from,
			Subject:   subject,
			Snippet:   msg.Snippet,
			Timestamp: msg.InternalDate,
		})
	}
	return replies, nil
}

// extractAddress returns the angle-bracketed portion of a From header, or the
// raw header value when no brackets are present.
func extractAddress(from string) string {
	if m := addrPattern.FindStringSubmatch(from); m != nil {
		return m[1]
	}
	return from
}
