package stdout

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
)

func TestSendPrintsDecodedMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := NewWithWriter("dev@localhost", &buf)

	raw := base64.URLEncoding.EncodeToString([]byte("Subject: Hi\r\n\r\nhello"))
	if err := tr.Send(context.Background(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "SEND") {
		t.Errorf("missing SEND frame in output:\n%s", out)
	}
	if !strings.Contains(out, "Subject: Hi") {
		t.Errorf("missing decoded message in output:\n%s", out)
	}
}

func TestCreateDraftPrintsDraftFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := NewWithWriter("dev@localhost", &buf)

	raw := base64.URLEncoding.EncodeToString([]byte("draft body"))
	if err := tr.CreateDraft(context.Background(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "DRAFT") {
		t.Errorf("missing DRAFT frame in output:\n%s", buf.String())
	}
}

func TestSendRejectsInvalidBase64(t *testing.T) {
	t.Parallel()

	tr := NewWithWriter("dev@localhost", &bytes.Buffer{})
	if err := tr.Send(context.Background(), "not base64!!!"); err == nil {
		t.Fatal("expected error for invalid base64url payload")
	}
}

func TestSenderAddress(t *testing.T) {
	t.Parallel()

	tr := NewWithWriter("dev@localhost", &bytes.Buffer{})
	addr, err := tr.SenderAddress(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "dev@localhost" {
		t.Errorf("sender: got %q", addr)
	}

	empty := NewWithWriter("", &bytes.Buffer{})
	if _, err := empty.SenderAddress(context.Background()); err == nil {
		t.Fatal("expected error when no sender is configured")
	}
}

func TestInboxIsEmpty(t *testing.T) {
	t.Parallel()

	tr := NewWithWriter("dev@localhost", &bytes.Buffer{})

	refs, err := tr.ListInbox(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("inbox: got %d refs, want 0", len(refs))
	}

	if _, err := tr.GetMessage(context.Background(), "any"); err == nil {
		t.Fatal("expected error fetching from an empty inbox")
	}
}
