package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"sort"

	"github.com/sirupsen/logrus"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Mailer handles sending emails
type Mailer struct {
	config Config
	log    logrus.FieldLogger
	tmpl   *template.Template
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type codeMail struct {
	Title         string
	Accent        string
	Lead          string
	Footer        string
	Username      string
	Code          string
	ExpiryMinutes int
}

// New creates a new Mailer instance
func New(cfg Config, log logrus.FieldLogger) *Mailer {
	return &Mailer{
		config: cfg,
		log:    log,
		tmpl:   template.Must(template.New("code").Parse(codeTemplate)),
		send:   smtp.SendMail,
	}
}

// SendOTP sends an OTP verification email
func (m *Mailer) SendOTP(toEmail, username, code string, expiryMinutes int) error {
	return m.sendCode(toEmail, "WellNest - Verify your email address", codeMail{
		Title:         "Email Verification",
		Accent:        "#14b8a6",
		Lead:          "Welcome to WellNest. Your verification code is:",
		Footer:        "If you didn't create a WellNest account, please ignore this email.",
		Username:      username,
		Code:          code,
		ExpiryMinutes: expiryMinutes,
	})
}

// SendPasswordReset sends a password reset OTP email
func (m *Mailer) SendPasswordReset(toEmail, username, code string, expiryMinutes int) error {
	return m.sendCode(toEmail, "WellNest - Reset your password", codeMail{
		Title:         "Password Reset",
		Accent:        "#f97316",
		Lead:          "We received a request to reset your password. Use this code:",
		Footer:        "If you didn't request a password reset, your password will remain unchanged.",
		Username:      username,
		Code:          code,
		ExpiryMinutes: expiryMinutes,
	})
}

func (m *Mailer) sendCode(to, subject string, data codeMail) error {
	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return m.deliver(to, subject, body.String())
}

// deliver sends an HTML email via SMTP
func (m *Mailer) deliver(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)

	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", m.config.FromName, m.config.From),
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=\"utf-8\"",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&msg, "%s: %s\r\n", k, headers[k])
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	entry := m.log.WithFields(logrus.Fields{"to": to, "subject": subject})
	if err := m.send(addr, auth, m.config.From, []string{to}, msg.Bytes()); err != nil {
		entry.WithError(err).Error("❌ Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	entry.Info("📧 Email sent")
	return nil
}

const codeTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f0fdfa;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:#ffffff;border-radius:16px;overflow:hidden;border:1px solid #ccfbf1;">
        <div style="background:{{.Accent}};padding:32px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:28px;font-weight:700;">🌿 WellNest</h1>
            <p style="color:rgba(255,255,255,0.9);margin:8px 0 0;font-size:14px;">{{.Title}}</p>
        </div>
        <div style="padding:32px;">
            <p style="color:#134e4a;font-size:16px;line-height:1.6;margin:0 0 24px;">
                Hi <strong>{{.Username}}</strong>,
            </p>
            <p style="color:#475569;font-size:14px;line-height:1.6;margin:0 0 24px;">{{.Lead}}</p>
            <div style="border:2px dashed {{.Accent}};border-radius:12px;padding:24px;text-align:center;margin:0 0 24px;">
                <span style="font-size:36px;font-weight:800;letter-spacing:8px;color:{{.Accent}};font-family:'Courier New',monospace;">{{.Code}}</span>
            </div>
            <p style="color:#64748b;font-size:13px;line-height:1.5;margin:0 0 8px;">
                ⏰ This code expires in <strong>{{.ExpiryMinutes}} minutes</strong>.
            </p>
            <p style="color:#64748b;font-size:13px;line-height:1.5;margin:0;">{{.Footer}}</p>
        </div>
        <div style="padding:16px 32px;border-top:1px solid #ccfbf1;text-align:center;">
            <p style="color:#94a3b8;font-size:12px;margin:0;">© 2026 WellNest. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`
