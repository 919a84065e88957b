package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/founderkit/outreach/internal/auth"
	"github.com/founderkit/outreach/internal/transport"
)

// defaultBaseURL is the Gmail API endpoint for the authenticated user.
const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1/users/me"

// inboxQuery restricts message listing to the inbox folder.
const inboxQuery = "is:inbox"

// Client sends and reads mail through the Gmail REST API on behalf of one
// credential bundle.
//
// The client performs no retries: a 401 triggers a single token refresh and
// one re-attempt of the same call (credential refresh, not send retry); every
// other failure is classified and surfaced to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *auth.TokenSource
}

// New creates a Gmail client bound to the given credential bundle.
func New(creds auth.Credentials) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
		tokens:     auth.NewTokenSource(creds, httpClient),
	}
}

// newWithOverrides creates a Client with a custom base URL and HTTP client,
// used for testing.
func newWithOverrides(creds auth.Credentials, baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     auth.NewTokenSource(creds, httpClient),
	}
}

// Name returns the transport name.
func (c *Client) Name() string {
	return "gmail"
}

// SenderAddress resolves the authenticated account's email address via the
// profile endpoint.
func (c *Client) SenderAddress(ctx context.Context) (string, error) {
	var resp profileResponse
	if err := c.call(ctx, http.MethodGet, "/profile", nil, &resp); err != nil {
		return "", err
	}
	if resp.EmailAddress == "" {
		return "", &transport.TransportError{
			Op:         "getProfile",
			StatusCode: http.StatusOK,
			Message:    "profile response missing emailAddress",
		}
	}
	return resp.EmailAddress, nil
}

// Send delivers a raw MIME message via messages.send.
func (c *Client) Send(ctx context.Context, raw string) error {
	return c.call(ctx, http.MethodPost, "/messages/send", sendRequest{Raw: raw}, nil)
}

// CreateDraft stores a raw MIME message via drafts.create.
func (c *Client) CreateDraft(ctx context.Context, raw string) error {
	return c.call(ctx, http.MethodPost, "/drafts", draftRequest{Message: sendRequest{Raw: raw}}, nil)
}

// ListInbox lists message references in the inbox folder.
func (c *Client) ListInbox(ctx context.Context) ([]transport.MessageRef, error) {
	var resp listResponse
	path := "/messages?q=" + url.QueryEscape(inboxQuery)
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	refs := make([]transport.MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, transport.MessageRef{ID: m.ID, ThreadID: m.ThreadID})
	}
	return refs, nil
}

// GetMessage fetches a single message with headers and snippet.
func (c *Client) GetMessage(ctx context.Context, id string) (*transport.Message, error) {
	var resp messageResponse
	if err := c.call(ctx, http.MethodGet, "/messages/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}

	msg := &transport.Message{
		ID:      resp.ID,
		Snippet: resp.Snippet,
	}
	if resp.InternalDate != "" {
		ts, err := strconv.ParseInt(resp.InternalDate, 10, 64)
		if err != nil {
			return nil, &transport.TransportError{
				Op:         "messages.get",
				StatusCode: http.StatusOK,
				Message:    fmt.Sprintf("unparseable internalDate %q", resp.InternalDate),
			}
		}
		msg.InternalDate = ts
	}
	for _, h := range resp.Payload.Headers {
		msg.Headers = append(msg.Headers, transport.Header{Name: h.Name, Value: h.Value})
	}
	return msg, nil
}

// call performs one API request, refreshing the access token and re-issuing
// the request once if the first attempt is rejected with 401.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	err := c.do(ctx, method, path, body, out)

	var terr *transport.TransportError
	if errors.As(err, &terr) && terr.StatusCode == http.StatusUnauthorized {
		slog.Info("refreshing Gmail API token after 401", "op", method+" "+path)
		if _, refreshErr := c.tokens.ForceRefresh(); refreshErr != nil {
			return &transport.AuthError{Op: "token refresh", Err: refreshErr}
		}
		err = c.do(ctx, method, path, body, out)
		terr = nil
		if errors.As(err, &terr) && terr.StatusCode == http.StatusUnauthorized {
			return &transport.AuthError{Op: terr.Op, Err: terr}
		}
	}

	return err
}

// do performs a single HTTP request against the Gmail API.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return &transport.AuthError{Op: "acquire access token", Err: err}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transport.TransportError{
			Op:        method + " " + path,
			Message:   err.Error(),
			Transient: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyError(method+" "+path, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// classifyError converts a non-2xx API response into a TransportError, using
// the structured error message when the body carries one.
func classifyError(op string, resp *http.Response) *transport.TransportError {
	data, _ := io.ReadAll(resp.Body)

	message := string(data)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	return &transport.TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    message,
		Transient:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
	}
}
