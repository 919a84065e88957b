// Package stdout implements a Transport that prints decoded messages to
// standard output. It is the dry-run backend for local development.
package stdout

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/founderkit/outreach/internal/transport"
)

// Transport prints outgoing mail to a writer in a human-readable framed format.
// Inbox operations report an empty mailbox, so reply reconciliation yields no
// results in dry-run mode rather than failing.
type Transport struct {
	sender string
	writer io.Writer
}

// New creates a stdout Transport that writes to os.Stdout and reports the
// given address as the authenticated sender.
func New(sender string) *Transport {
	return &Transport{sender: sender, writer: os.Stdout}
}

// NewWithWriter creates a stdout Transport that writes to the given writer.
// This is useful for testing.
func NewWithWriter(sender string, w io.Writer) *Transport {
	return &Transport{sender: sender, writer: w}
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// SenderAddress returns the configured sender address.
func (t *Transport) SenderAddress(_ context.Context) (string, error) {
	if t.sender == "" {
		return "", fmt.Errorf("stdout transport has no sender configured")
	}
	return t.sender, nil
}

// Send prints the decoded message framed as an immediate delivery.
func (t *Transport) Send(_ context.Context, raw string) error {
	return t.print("SEND", raw)
}

// CreateDraft prints the decoded message framed as a stored draft.
func (t *Transport) CreateDraft(_ context.Context, raw string) error {
	return t.print("DRAFT", raw)
}

// ListInbox reports an empty inbox.
func (t *Transport) ListInbox(_ context.Context) ([]transport.MessageRef, error) {
	return nil, nil
}

// GetMessage always fails; ListInbox never hands out ids to fetch.
func (t *Transport) GetMessage(_ context.Context, id string) (*transport.Message, error) {
	return nil, fmt.Errorf("stdout transport has no message %q", id)
}

func (t *Transport) print(kind, raw string) error {
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("failed to decode raw message: %w", err)
	}

	fmt.Fprintf(t.writer, "======== %s ========\n%s\n====================\n", kind, decoded)
	return nil
}
