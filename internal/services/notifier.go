package services

import (
	"fmt"
	"log"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Notifier delivers ticket event emails. Implementations must be safe to call
// from request handlers; delivery failures are logged, never surfaced.
type Notifier interface {
	TicketStatusChanged(toEmail, subject string, status string)
	TicketAssigned(toEmail, subject string)
}

type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailNotifier(host, port, username, password string) *EmailNotifier {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		portNum = 587
	}
	return &EmailNotifier{
		dialer: gomail.NewDialer(host, portNum, username, password),
		from:   username,
	}
}

func (n *EmailNotifier) TicketStatusChanged(toEmail, subject string, status string) {
	body := fmt.Sprintf("Your ticket %q is now %s.", subject, status)
	n.send(toEmail, "Ticket status updated", body)
}

func (n *EmailNotifier) TicketAssigned(toEmail, subject string) {
	body := fmt.Sprintf("Ticket %q has been assigned to you.", subject)
	n.send(toEmail, "Ticket assigned to you", body)
}

func (n *EmailNotifier) send(to, subject, body string) {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	go func() {
		if err := n.dialer.DialAndSend(m); err != nil {
			log.Printf("[MAIL] Failed to send %q to %s: %v", subject, to, err)
		}
	}()
}
