// Package transport defines the interface for mail delivery backends and the
// error taxonomy shared by their callers.
package transport

import (
	"context"
	"strconv"
)

// Transport is the interface that mail delivery backends must implement.
// A Transport is bound to one credential bundle at construction time; every
// operation acts on the mailbox those credentials grant access to.
type Transport interface {
	// SenderAddress resolves the authenticated account's own email address.
	SenderAddress(ctx context.Context) (string, error)

	// Send delivers a base64url-encoded raw MIME message immediately.
	Send(ctx context.Context, raw string) error

	// CreateDraft stores a base64url-encoded raw MIME message as a draft
	// without sending it.
	CreateDraft(ctx context.Context, raw string) error

	// ListInbox lists message references currently in the inbox folder.
	ListInbox(ctx context.Context) ([]MessageRef, error)

	// GetMessage fetches a single message with headers and snippet.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// Name returns the human-readable name of this transport.
	Name() string
}

// MessageRef identifies a message in a list response.
type MessageRef struct {
	ID       string
	ThreadID string
}

// Header is a single message header as returned by the provider.
type Header struct {
	Name  string
	Value string
}

// Message is a fetched inbox message.
type Message struct {
	ID           string
	Snippet      string
	InternalDate int64 // provider-internal timestamp, milliseconds since epoch
	Headers      []Header
}

// Header returns the value of the first header with the given name, or the
// empty string if the message has no such header.
func (m *Message) Header(name string) string {
	for _, h := range m.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// AuthError indicates missing, invalid, or expired credentials. It is never
// retried automatically; the caller must re-trigger the external login flow.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth error: " + e.Op
	}
	return "auth error: " + e.Op + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError indicates that the mail API rejected a call. Transient marks
// errors that might succeed on a later attempt (rate limits, 5xx, network
// faults); callers still must not blindly retry sends, which are not
// idempotent.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Transient  bool
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Op + " (HTTP " + strconv.Itoa(e.StatusCode) + "): " + e.Message
}
