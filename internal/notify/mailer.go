// Package notify sends account lifecycle mails.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const appName = "Oratori"

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Options configures a Mailer.
type Options struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
	AppURL     string
	Send       SendFunc
	Now        func() time.Time
	Logger     *slog.Logger
}

// Mailer delivers notifications over SMTP. With no host configured every
// notification is skipped and logged.
type Mailer struct {
	addr       string
	host       string
	auth       smtp.Auth
	from       string
	adminEmail string
	appURL     string
	send       SendFunc
	now        func() time.Time
	logger     *slog.Logger
}

// NewMailer builds a Mailer from opts.
func NewMailer(opts Options) *Mailer {
	if opts.Send == nil {
		opts.Send = smtp.SendMail
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Mailer{
		host:       strings.TrimSpace(opts.Host),
		from:       strings.TrimSpace(opts.From),
		adminEmail: strings.TrimSpace(opts.AdminEmail),
		appURL:     strings.TrimRight(strings.TrimSpace(opts.AppURL), "/"),
		send:       opts.Send,
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if m.host != "" {
		m.addr = net.JoinHostPort(m.host, strconv.Itoa(opts.Port))
		if opts.Username != "" {
			m.auth = smtp.PlainAuth("", opts.Username, opts.Password, m.host)
		}
	}
	return m
}

// Enabled reports whether the mailer can deliver.
func (m *Mailer) Enabled() bool {
	return m != nil && m.host != "" && m.from != ""
}

// ApprovalRequested tells the administrator that email registered and waits for approval.
func (m *Mailer) ApprovalRequested(ctx context.Context, email string) error {
	if m.adminEmail == "" {
		m.logger.InfoContext(ctx, "admin email not configured, skipping approval request mail")
		return nil
	}
	body := fmt.Sprintf(
		"Un nuovo utente ha richiesto l'accesso a %s.\n\nEmail: %s\nData richiesta: %s\n\nGestisci le richieste: %s/admin\n",
		appName, email, m.now().Format("02/01/2006 15:04"), m.appURL,
	)
	return m.deliver(ctx, m.adminEmail, fmt.Sprintf("[%s] Nuova richiesta di accesso", appName), body)
}

// Approved tells the user their access was granted.
func (m *Mailer) Approved(ctx context.Context, email string) error {
	body := fmt.Sprintf(
		"Benvenuto in %s!\n\nLa tua richiesta di accesso è stata approvata.\nOra puoi accedere all'applicazione e gestire oratori e programmi.\n\n%s\n",
		appName, m.appURL,
	)
	return m.deliver(ctx, email, fmt.Sprintf("[%s] Accesso approvato", appName), body)
}

// Rejected tells the user their access request was declined.
func (m *Mailer) Rejected(ctx context.Context, email, reason string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Purtroppo la tua richiesta di accesso a %s non è stata approvata.\n", appName)
	if reason = strings.TrimSpace(reason); reason != "" {
		fmt.Fprintf(&b, "\nMotivo: %s\n", reason)
	}
	b.WriteString("\nSe ritieni che si tratti di un errore, contatta l'amministratore.\n")
	return m.deliver(ctx, email, fmt.Sprintf("[%s] Richiesta di accesso", appName), b.String())
}

func (m *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	logger := m.logger.With("recipient", to, "subject", subject)
	if !m.Enabled() {
		logger.InfoContext(ctx, "smtp not configured, skipping mail")
		return nil
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("send mail: empty recipient")
	}

	msg := buildMessage(m.from, to, subject, body)
	if err := m.send(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		logger.WarnContext(ctx, "failed to send mail", "error", err)
		return fmt.Errorf("send mail: %w", err)
	}
	logger.InfoContext(ctx, "mail sent")
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
