package util

import (
	"fmt"
	"sync"

	"gopkg.in/gomail.v2"
)

// mailSettings holds the SMTP transport configuration. While the host is
// empty the dispatcher is unconfigured and every notification is a silent
// no-op, mirroring a deployment without email credentials.
type mailSettings struct {
	host     string
	port     int
	username string
	password string
	from     string
}

var (
	mailMu sync.RWMutex
	mail   mailSettings

	// sendMail is swappable in tests to capture outgoing messages.
	sendMail = func(s mailSettings, m *gomail.Message) error {
		d := gomail.NewDialer(s.host, s.port, s.username, s.password)
		return d.DialAndSend(m)
	}
)

// InitMailer configures the SMTP transport for appointment notifications.
// Call once during startup; an empty host disables the dispatcher.
func InitMailer(host string, port int, username, password, from string) {
	mailMu.Lock()
	defer mailMu.Unlock()
	mail = mailSettings{host: host, port: port, username: username, password: password, from: from}
}

func mailerSettings() mailSettings {
	mailMu.RLock()
	defer mailMu.RUnlock()
	return mail
}

// SetSendMailForTest replaces the transport function. Tests only.
func SetSendMailForTest(fn func(mailSettings, *gomail.Message) error) func(mailSettings, *gomail.Message) error {
	prev := sendMail
	sendMail = fn
	return prev
}

// sendNotification delivers one email. Transport failures are logged and
// swallowed; notification delivery must never fail the caller's transaction.
func sendNotification(toEmail, subject, body string) {
	s := mailerSettings()
	if s.host == "" || toEmail == "" {
		return
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, "Doctors App")
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := sendMail(s, m); err != nil {
		LogNotificationFailure(toEmail, subject, err)
	}
}

// NotifyBooked emails the patient an appointment confirmation. Best-effort:
// callers typically run it in a goroutine and never wait for the result.
func NotifyBooked(patientFirstName, patientEmail, doctorName, date, timeSlot string) {
	body := fmt.Sprintf("Dear %s,\n"+
		"We are glad to confirm your appointment with Doctor %s on %s at %s.\n"+
		"Best regards,\n"+
		"The Doctors Team", patientFirstName, doctorName, date, timeSlot)
	sendNotification(patientEmail, "Appointment confirmation", body)
}

// NotifyCancelled emails the patient a cancellation notice. Best-effort.
func NotifyCancelled(patientFirstName, patientEmail, doctorName, date, timeSlot string) {
	body := fmt.Sprintf("Dear %s,\n"+
		"Your appointment with Doctor %s on %s at %s has been cancelled.\n"+
		"Best regards,\n"+
		"The Doctors Team", patientFirstName, doctorName, date, timeSlot)
	sendNotification(patientEmail, "Appointment cancellation", body)
}
