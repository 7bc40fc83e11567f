package mail

import (
	"context"
	"fmt"

	"github.com/dom/account-auth/internal/config"
	gomail "github.com/wneessen/go-mail"
)

// Mailer delivers activation mails. Implementations may fail; callers decide
// whether a failure is fatal.
type Mailer interface {
	SendActivationMail(ctx context.Context, to, activationLink string) error
}

type SMTPMailer struct {
	cfg    config.SMTPConfig
	apiURL string
	links  func(link string) string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg.SMTP,
		apiURL: cfg.APIURL,
		links:  cfg.ActivationURL,
	}
}

func (m *SMTPMailer) SendActivationMail(ctx context.Context, to, activationLink string) error {
	body, err := RenderActivationBody(m.links(activationLink))
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(ActivationSubject(m.apiURL))
	msg.SetBodyString(gomail.TypeTextHTML, body)

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.User),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send activation mail to %s: %w", to, err)
	}
	return nil
}
