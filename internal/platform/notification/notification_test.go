package notification

import (
	"context"
	"strings"
	"testing"
)

func TestTemplateEngine_RenderInvite(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateAssessmentInvite, map[string]string{
		"patient_name": "Ana",
		"measure":      "PHQ-9",
		"due_date":     "2025-03-01",
		"expires_date": "2025-03-08",
		"link":         "https://portal.example.org/a/tok123",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(subject, "PHQ-9") {
		t.Errorf("subject missing measure: %s", subject)
	}
	if !strings.Contains(body, "https://portal.example.org/a/tok123") {
		t.Errorf("body missing link: %s", body)
	}
	if strings.Contains(body, "{{") {
		t.Errorf("unreplaced placeholder in body: %s", body)
	}
}

func TestTemplateEngine_RegisterTemplate(t *testing.T) {
	e := NewTemplateEngine()

	e.RegisterTemplate(Template{
		ID:      "custom-followup",
		Name:    "Custom Follow-up",
		Subject: "Follow-up for {{measure}}",
		Body:    "Hi {{patient_name}}, please follow up.",
		Channel: ChannelEmail,
	})
	subject, _, err := e.Render("custom-followup", map[string]string{"measure": "GAD-7"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "Follow-up for GAD-7" {
		t.Errorf("unexpected subject: %s", subject)
	}

	// Re-registering an existing ID replaces the built-in.
	e.RegisterTemplate(Template{
		ID:      TemplateAssessmentInvite,
		Subject: "Clinic check-in: {{measure}}",
		Body:    "Complete here: {{link}}",
		Channel: ChannelEmail,
	})
	subject, _, err = e.Render(TemplateAssessmentInvite, map[string]string{"measure": "PHQ-9", "link": "x"})
	if err != nil {
		t.Fatalf("Render replaced: %v", err)
	}
	if subject != "Clinic check-in: PHQ-9" {
		t.Errorf("expected replaced subject, got %s", subject)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestManager_SendSuccess(t *testing.T) {
	email := &MockEmailSender{}
	sms := &MockSMSSender{}
	mgr := NewManager(email, sms, NewTemplateEngine())

	res := mgr.Send(context.Background(), &Notification{
		Channel:   ChannelEmail,
		Recipient: "ana@example.org",
		Subject:   "hello",
		Body:      "body",
	})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.MessageID == "" {
		t.Error("expected message id on success")
	}
	if len(email.Calls()) != 1 {
		t.Errorf("expected 1 email call, got %d", len(email.Calls()))
	}

	n, err := mgr.Get(res.MessageID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n.Status != "sent" || n.SentAt == nil {
		t.Errorf("expected sent notification, got status=%s", n.Status)
	}
}

func TestManager_SendFailureRecorded(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	mgr := NewManager(email, &MockSMSSender{}, NewTemplateEngine())

	res := mgr.Send(context.Background(), &Notification{
		Channel:   ChannelEmail,
		Recipient: "ana@example.org",
		Body:      "body",
	})
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Error != "smtp down" {
		t.Errorf("expected provider error, got %q", res.Error)
	}

	stats := mgr.Stats()
	if stats["failed"] != 1 {
		t.Errorf("expected 1 failed notification, got %v", stats)
	}
}

func TestManager_SendFromTemplate(t *testing.T) {
	email := &MockEmailSender{}
	mgr := NewManager(email, &MockSMSSender{}, NewTemplateEngine())

	res := mgr.SendFromTemplate(context.Background(), TemplateAssessmentReminder, map[string]string{
		"patient_name": "Ana",
		"measure":      "GAD-7",
		"due_date":     "2025-03-01",
		"link":         "https://portal.example.org/a/tok456",
	}, "ana@example.org")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	calls := email.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email call, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Body, "GAD-7") {
		t.Errorf("body missing measure: %s", calls[0].Body)
	}
}

func TestManager_Retry(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	mgr := NewManager(email, &MockSMSSender{}, NewTemplateEngine())

	res := mgr.Send(context.Background(), &Notification{
		Channel:   ChannelEmail,
		Recipient: "ana@example.org",
		Body:      "body",
	})
	if res.Success {
		t.Fatal("expected initial failure")
	}

	var failedID string
	for id := range mgr.notifications {
		failedID = id
	}

	// Retrying a sent notification is rejected later; first retry succeeds.
	email.ShouldFail = false
	retryRes, err := mgr.Retry(context.Background(), failedID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if !retryRes.Success {
		t.Fatalf("expected retry success, got %+v", retryRes)
	}

	if _, err := mgr.Retry(context.Background(), failedID); err == nil {
		t.Error("expected error retrying a sent notification")
	}
}
