package util

import (
	"testing"

	"gopkg.in/gomail.v2"
)

func TestNotifyBookedSendsMessage(t *testing.T) {
	InitMailer("smtp.example.com", 587, "mailer", "pw", "noreply@example.com")
	defer InitMailer("", 0, "", "", "")

	var sent []*gomail.Message
	prev := SetSendMailForTest(func(_ mailSettings, m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	})
	defer SetSendMailForTest(prev)

	NotifyBooked("Alice", "alice@example.com", "Maria Garcia", "15 September 2025", "10:30")

	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if got := sent[0].GetHeader("To"); len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("unexpected To header: %v", got)
	}
	if got := sent[0].GetHeader("Subject"); len(got) != 1 || got[0] != "Appointment confirmation" {
		t.Errorf("unexpected Subject header: %v", got)
	}
}

func TestNotifyCancelledSendsMessage(t *testing.T) {
	InitMailer("smtp.example.com", 587, "mailer", "pw", "noreply@example.com")
	defer InitMailer("", 0, "", "", "")

	var sent []*gomail.Message
	prev := SetSendMailForTest(func(_ mailSettings, m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	})
	defer SetSendMailForTest(prev)

	NotifyCancelled("Bob", "bob@example.com", "Maria Garcia", "15 September 2025", "10:30")

	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if got := sent[0].GetHeader("Subject"); len(got) != 1 || got[0] != "Appointment cancellation" {
		t.Errorf("unexpected Subject header: %v", got)
	}
}

func TestNotifyNoopWhenUnconfigured(t *testing.T) {
	InitMailer("", 0, "", "", "")

	called := false
	prev := SetSendMailForTest(func(_ mailSettings, _ *gomail.Message) error {
		called = true
		return nil
	})
	defer SetSendMailForTest(prev)

	NotifyBooked("Alice", "alice@example.com", "Maria Garcia", "15 September 2025", "10:30")
	NotifyCancelled("Alice", "alice@example.com", "Maria Garcia", "15 September 2025", "10:30")

	if called {
		t.Error("expected no send attempt while SMTP host is unconfigured")
	}
}

func TestNotifySkipsEmptyRecipient(t *testing.T) {
	InitMailer("smtp.example.com", 587, "", "", "noreply@example.com")
	defer InitMailer("", 0, "", "", "")

	called := false
	prev := SetSendMailForTest(func(_ mailSettings, _ *gomail.Message) error {
		called = true
		return nil
	})
	defer SetSendMailForTest(prev)

	NotifyBooked("Alice", "", "Maria Garcia", "15 September 2025", "10:30")

	if called {
		t.Error("expected no send attempt for empty recipient email")
	}
}
