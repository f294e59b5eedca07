package email

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host     string
	port     string
	from     string
	sendMail SendFunc
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host:     host,
		port:     port,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// WithSender replaces the SMTP transport, for tests and dry runs.
func (s *Service) WithSender(fn SendFunc) *Service {
	s.sendMail = fn
	return s
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to string, c Confirmation) error {
	subject := fmt.Sprintf("Confirmación de compra (orden %s)", c.OrderID)
	body, err := BuildOrderConfirmationBody(c)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, mime.QEncoding.Encode("UTF-8", subject), body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.sendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
