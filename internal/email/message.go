// Package email defines the outgoing email model, the recipient disclosure
// rule, and the raw MIME encoding required by the Gmail send API.
package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// NamePlaceholder is the token in a body template that is replaced with the
// investor's name during personalization.
const NamePlaceholder = "[Investor Name]"

// Message represents an outgoing email before encoding.
type Message struct {
	From    string
	To      []string
	Bcc     []string
	Subject string
	Body    string
}

// Compose builds a transport-ready payload from plain subject/body/recipient
// input. With more than one recipient, the real addresses go into Bcc and the
// To header carries the sender's own address as a placeholder, so recipients
// cannot see each other. A single recipient is addressed directly.
//
// The result is the base64url-encoded raw MIME message expected by the
// messages.send API.
func Compose(sender string, recipients []string, subject, body string) (string, error) {
	if len(recipients) == 0 {
		return "", fmt.Errorf("no recipients")
	}

	msg := &Message{
		From:    sender,
		Subject: subject,
		Body:    body,
	}

	if len(recipients) > 1 {
		msg.To = []string{sender}
		msg.Bcc = recipients
	} else {
		msg.To = recipients
	}

	return msg.Raw()
}

// Raw encodes the message as a base64url RFC 2045 MIME document with a single
// text/plain part.
func (m *Message) Raw() (string, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", m.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.To, ", "))
	if len(m.Bcc) > 0 {
		fmt.Fprintf(&buf, "Bcc: %s\r\n", strings.Join(m.Bcc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := make(textproto.MIMEHeader)
	bodyHeader.Set("Content-Type", "text/plain; charset=UTF-8")
	part, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := part.Write([]byte(m.Body)); err != nil {
		return "", fmt.Errorf("failed to write body part: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize message: %w", err)
	}

	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// Personalize substitutes the investor name placeholder in a body template.
// A template without the placeholder is returned unchanged.
func Personalize(body, name string) string {
	return strings.ReplaceAll(body, NamePlaceholder, name)
}
