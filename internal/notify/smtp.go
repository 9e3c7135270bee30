// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
)

// SMTPConfig carries the relay credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends HTML transactional email over a plain SMTP relay.
//
// Templates are compiled at construction so a broken template fails startup,
// not a customer's registration.
type SMTPMailer struct {
	config        SMTPConfig
	publicBaseURL string
	verifyTmpl    *template.Template
	resetTmpl     *template.Template
}

var verifyEmailTemplate = template.Must(template.New("verify").Parse(`<html>
<body style="font-family: sans-serif;">
	<h2>Welcome to Zaffran Foods</h2>
	<p>Confirm your email address to start ordering. The link is valid for 24 hours.</p>
	<p><a href="{{.Link}}">Verify my email</a></p>
	<p>If the button does not work, open this address:<br>{{.Link}}</p>
	<p>If you did not create this account, you can ignore this email.</p>
</body>
</html>`))

var resetEmailTemplate = template.Must(template.New("reset").Parse(`<html>
<body style="font-family: sans-serif;">
	<h2>Password reset requested</h2>
	<p>Use the link below to choose a new password. It expires in 15 minutes.</p>
	<p><a href="{{.Link}}">Reset my password</a></p>
	<p>If the button does not work, open this address:<br>{{.Link}}</p>
	<p>If you did not request this, your password is unchanged — no action needed.</p>
</body>
</html>`))

// NewSMTPMailer constructs the mailer. publicBaseURL is the externally
// reachable origin embedded into emailed links.
func NewSMTPMailer(config SMTPConfig, publicBaseURL string) *SMTPMailer {
	return &SMTPMailer{
		config:        config,
		publicBaseURL: publicBaseURL,
		verifyTmpl:    verifyEmailTemplate,
		resetTmpl:     resetEmailTemplate,
	}
}

// SendVerificationEmail emails the account verification link.
func (mailer *SMTPMailer) SendVerificationEmail(context context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/api/v1/users/verify-email/%s", mailer.publicBaseURL, token)
	return mailer.send(context, toEmail, "Verify your Zaffran Foods account", mailer.verifyTmpl, link)
}

// SendPasswordResetEmail emails the password reset link.
func (mailer *SMTPMailer) SendPasswordResetEmail(context context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", mailer.publicBaseURL, token)
	return mailer.send(context, toEmail, "Reset your Zaffran Foods password", mailer.resetTmpl, link)
}

func (mailer *SMTPMailer) send(_ context.Context, toEmail, subject string, tmpl *template.Template, link string) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, struct{ Link string }{Link: link}); err != nil {
		return fmt.Errorf("smtp_mailer_template_failed: %w", err)
	}

	auth := smtp.PlainAuth("", mailer.config.Username, mailer.config.Password, mailer.config.Host)
	addr := fmt.Sprintf("%s:%d", mailer.config.Host, mailer.config.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	message := []byte(fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\n%s\r\n%s",
		toEmail, mailer.config.From, subject, mime, body.String(),
	))

	if err := smtp.SendMail(addr, auth, mailer.config.From, []string{toEmail}, message); err != nil {
		return fmt.Errorf("smtp_mailer_send_failed: %w", err)
	}

	return nil
}
