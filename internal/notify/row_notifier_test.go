package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type brokenAppender struct{}

func (brokenAppender) Append(context.Context, sheet.Row) error { return errors.New("db down") }

func testRow() sheet.Row {
	return sheet.Row{
		ID:         "row-1",
		ReceivedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Columns:    []string{"memory", "email"},
		Values:     []string{"blue", ""},
	}
}

func TestRowNotifier_SendsSummary(t *testing.T) {
	mem := sheet.NewMemoryAppender()
	sender := &recordingSender{}
	n := NewRowNotifier(mem, sender, "ops@example.com", logging.New("error"))

	if err := n.Append(context.Background(), testRow()); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(mem.Rows()) != 1 {
		t.Fatalf("expected row to be stored")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	body := sender.sent[0].Body
	if !strings.Contains(body, "memory: blue") || !strings.Contains(body, "email: (blank)") {
		t.Errorf("unexpected body: %q", body)
	}
	if sender.sent[0].To != "ops@example.com" {
		t.Errorf("unexpected recipient %q", sender.sent[0].To)
	}
}

func TestRowNotifier_EmailFailureIgnored(t *testing.T) {
	mem := sheet.NewMemoryAppender()
	n := NewRowNotifier(mem, &recordingSender{err: errors.New("smtp down")}, "ops@example.com", logging.New("error"))
	if err := n.Append(context.Background(), testRow()); err != nil {
		t.Fatalf("email failure should not fail append: %v", err)
	}
}

func TestRowNotifier_AppendFailureSkipsEmail(t *testing.T) {
	sender := &recordingSender{}
	n := NewRowNotifier(brokenAppender{}, sender, "ops@example.com", logging.New("error"))
	if err := n.Append(context.Background(), testRow()); err == nil {
		t.Fatal("expected append error")
	}
	if len(sender.sent) != 0 {
		t.Fatal("no email expected when the row was not stored")
	}
}

func TestRowNotifier_NoRecipient(t *testing.T) {
	sender := &recordingSender{}
	n := NewRowNotifier(sheet.NewMemoryAppender(), sender, "", nil)
	if err := n.Append(context.Background(), testRow()); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("expected no email without recipient")
	}
	rows, err := n.List(context.Background(), 10, 0)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected listing through notifier, got %v %v", rows, err)
	}
}
