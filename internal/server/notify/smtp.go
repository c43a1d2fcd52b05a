package notify

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net"
	"net/mail"
	"net/smtp"
	"time"
)

// ResetSubject is the subject line of the reset e-mail.
const ResetSubject = "Reset Your Password - Quicklyway"

//go:embed reset_email.html
var resetEmailHTML string

var resetEmailTemplate = template.Must(template.New("reset").Parse(resetEmailHTML))

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPNotifier sends the reset e-mail through an SMTP relay.
type SMTPNotifier struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

// RenderResetEmail returns the HTML body for msg. An empty name is shown as "User".
func RenderResetEmail(msg Message) (string, error) {
	name := msg.Name
	if name == "" {
		name = "User"
	}

	var buf bytes.Buffer
	err := resetEmailTemplate.Execute(&buf, struct {
		Name     string
		ResetURL string
		Year     int
	}{Name: name, ResetURL: msg.ResetURL, Year: time.Now().Year()})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := mail.ParseAddress(n.cfg.From)
	if err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	body, err := RenderResetEmail(msg)
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	message := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n"+
			"%s\r\n",
		from.String(), to.String(), ResetSubject, body))

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	addr := net.JoinHostPort(n.cfg.Host, n.cfg.Port)
	if err := n.sendMail(addr, auth, from.Address, []string{to.Address}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
