package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/mzalewski/secadmin-api/internal/config"
	"github.com/mzalewski/secadmin-api/internal/model"
)

// Service sends operational notifications to account holders. Callers treat
// every send as best-effort; a failed notification never fails the security
// decision that triggered it.
type Service interface {
	NotifyLockout(ctx context.Context, user *model.User, until time.Time) error
	NotifyForcedPasswordChange(ctx context.Context, user *model.User) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewService creates an SMTP-backed notifier. An empty host yields a no-op
// service, for deployments without a mail relay.
func NewService(cfg config.SMTPConfig) Service {
	if cfg.Host == "" {
		return noopService{}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *smtpService) NotifyLockout(_ context.Context, user *model.User, until time.Time) error {
	if user.Email == nil {
		return nil
	}
	body := fmt.Sprintf(
		"Hello %s,\n\nYour account was locked after repeated failed sign-in attempts. "+
			"You can try again after %s.\n\nIf this wasn't you, contact your administrator.",
		user.FullName, until.Format(time.RFC1123),
	)
	return s.send(*user.Email, "Account locked", body)
}

func (s *smtpService) NotifyForcedPasswordChange(_ context.Context, user *model.User) error {
	if user.Email == nil {
		return nil
	}
	body := fmt.Sprintf(
		"Hello %s,\n\nAn administrator requires you to change your password. "+
			"You will be asked to set a new one on your next sign-in.",
		user.FullName,
	)
	return s.send(*user.Email, "Password change required", body)
}

type noopService struct{}

func (noopService) NotifyLockout(context.Context, *model.User, time.Time) error { return nil }
func (noopService) NotifyForcedPasswordChange(context.Context, *model.User) error {
	return nil
}
