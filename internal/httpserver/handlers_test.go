package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/founderkit/outreach/internal/auth"
	"github.com/founderkit/outreach/internal/outreach"
	"github.com/founderkit/outreach/internal/sendlog"
	"github.com/founderkit/outreach/internal/transport"
	"github.com/founderkit/outreach/internal/variants"
)

// countingTransport counts deliveries for handler-level assertions.
type countingTransport struct {
	mu     sync.Mutex
	sends  int
	drafts int
}

func (c *countingTransport) SenderAddress(context.Context) (string, error) {
	return "founder@startup.io", nil
}
func (c *countingTransport) Name() string { return "counting" }

func (c *countingTransport) Send(context.Context, string) error {
	c.mu.Lock()
	c.sends++
	c.mu.Unlock()
	return nil
}

func (c *countingTransport) CreateDraft(context.Context, string) error {
	c.mu.Lock()
	c.drafts++
	c.mu.Unlock()
	return nil
}

func (c *countingTransport) ListInbox(context.Context) ([]transport.MessageRef, error) {
	return nil, nil
}

func (c *countingTransport) GetMessage(context.Context, string) (*transport.Message, error) {
	return nil, &transport.TransportError{Op: "get message", StatusCode: 404, Message: "not found"}
}

func newTestServer(t *testing.T, gen variants.Generator) (*Server, *countingTransport) {
	t.Helper()

	ct := &countingTransport{}
	store := sendlog.New(filepath.Join(t.TempDir(), "sent_log.json"))
	svc := outreach.New(func(auth.Credentials) transport.Transport { return ct }, store)

	return New(Config{Service: svc, Generator: gen}), ct
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPut, "/api/credentials", auth.Credentials{Token: "session-token"})
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSendRequiresSession(t *testing.T) {
	t.Parallel()

	s, ct := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/send", deliveryRequest{
		Subject:   "Intro",
		Body:      "hello",
		Investors: []outreach.Investor{{Name: "Asha", Email: "asha@x.com"}},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ct.sends)
}

func TestSendDelivers(t *testing.T) {
	t.Parallel()

	s, ct := newTestServer(t, nil)
	login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/send", deliveryRequest{
		Subject: "Intro",
		Body:    "Hi [Investor Name]",
		Investors: []outreach.Investor{
			{Name: "Asha", Email: "asha@x.com"},
			{Name: "Ravi", Email: "ravi@y.com"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
	assert.Equal(t, 2, ct.sends)

	// The deliveries show up in the sent listing.
	rec = doJSON(t, s, http.MethodGet, "/api/sent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sent, ok := decodeBody(t, rec)["sent"].([]any)
	require.True(t, ok)
	assert.Len(t, sent, 2)
}

func TestSendRejectsEmptyInvestors(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/send", deliveryRequest{Subject: "Intro", Body: "hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraftsDoNotSend(t *testing.T) {
	t.Parallel()

	s, ct := newTestServer(t, nil)
	login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/drafts", deliveryRequest{
		Subject:   "Intro",
		Body:      "hello",
		Investors: []outreach.Investor{{Name: "Asha", Email: "asha@x.com"}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ct.drafts)
	assert.Zero(t, ct.sends)
}

func TestScheduleBatch(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	login(t, s)

	investors := make([]outreach.Investor, 25)
	for i := range investors {
		investors[i] = outreach.Investor{Email: string(rune('a'+i%26)) + "@x.com"}
	}

	rec := doJSON(t, s, http.MethodPost, "/api/schedule", deliveryRequest{
		Subject:      "Intro",
		Body:         "same for everyone",
		Investors:    investors,
		ScheduleType: "batch",
		BatchSize:    10,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	ids, ok := decodeBody(t, rec)["job_ids"].([]any)
	require.True(t, ok)
	assert.Len(t, ids, 3)

	rec = doJSON(t, s, http.MethodGet, "/api/scheduled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	scheduled, ok := decodeBody(t, rec)["scheduled"].([]any)
	require.True(t, ok)
	assert.Len(t, scheduled, 3)
}

func TestScheduleFixedTimeParsesRunAt(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	login(t, s)

	base := deliveryRequest{
		Subject:      "Intro",
		Body:         "hello",
		Investors:    []outreach.Investor{{Email: "a@x.com"}, {Email: "b@y.com"}},
		ScheduleType: "fixed_time",
	}

	base.RunAt = "not a timestamp"
	rec := doJSON(t, s, http.MethodPost, "/api/schedule", base)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	base.RunAt = "2026-09-02T09:00:00Z"
	rec = doJSON(t, s, http.MethodPost, "/api/schedule", base)
	require.Equal(t, http.StatusOK, rec.Code)
	ids, ok := decodeBody(t, rec)["job_ids"].([]any)
	require.True(t, ok)
	assert.Len(t, ids, 1)
}

func TestScheduleIndividualWantsExactlyOneInvestor(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/schedule", deliveryRequest{
		Subject:      "Intro",
		Body:         "hello",
		Investors:    []outreach.Investor{{Email: "a@x.com"}, {Email: "b@y.com"}},
		ScheduleType: "individual",
		RunAt:        "2026-09-02T09:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleRejectsUnknownType(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	login(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/schedule", deliveryRequest{
		Subject:      "Intro",
		Body:         "hello",
		Investors:    []outreach.Investor{{Email: "a@x.com"}},
		ScheduleType: "hourly",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSentListIsNeverNull(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/sent", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sent":[]`)
}

func TestRepliesRequireSession(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/replies", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRepliesWithSession(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	login(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/replies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, hasKey := decodeBody(t, rec)["replies"]
	assert.True(t, hasKey)
}

func TestDeleteCredentialsEndsSession(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	login(t, s)

	rec := doJSON(t, s, http.MethodDelete, "/api/credentials", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/send", deliveryRequest{
		Subject:   "Intro",
		Body:      "hello",
		Investors: []outreach.Investor{{Email: "a@x.com"}},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPutCredentialsRejectsEmptyBundle(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodPut, "/api/credentials", auth.Credentials{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVariantsUnconfigured(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/variants", variants.FounderProfile{FounderName: "Asha"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVariantsGeneratesAllStyles(t *testing.T) {
	t.Parallel()

	gen := variants.GeneratorFunc(func(context.Context, string) (variants.Draft, error) {
		return variants.Draft{Subject: "S", Body: "B"}, nil
	})
	s, _ := newTestServer(t, gen)

	rec := doJSON(t, s, http.MethodPost, "/api/variants", variants.FounderProfile{FounderName: "Asha"})
	require.Equal(t, http.StatusOK, rec.Code)

	drafts, ok := decodeBody(t, rec)["variants"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, drafts, len(variants.Styles))
}
