// Package email sends operator alerts over SMTP.
package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"pixgate/internal/application/charge/usecases"
	"pixgate/internal/domain/charge"
	"pixgate/internal/shared/logger"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	// OperatorTo receives reconciliation anomaly alerts.
	OperatorTo string
}

// SMTPNotifier emails the operator when a settlement observation reports an
// amount that disagrees with the stored charge. Sending is best-effort: a
// mail failure is logged, never propagated into the reconciliation path.
type SMTPNotifier struct {
	config SMTPConfig
	dialer *gomail.Dialer
	logger logger.Interface
}

func NewSMTPNotifier(config SMTPConfig, logger logger.Interface) *SMTPNotifier {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)

	return &SMTPNotifier{
		config: config,
		dialer: dialer,
		logger: logger,
	}
}

// Ensure the notifier satisfies the reconciliation contract
var _ usecases.MismatchNotifier = (*SMTPNotifier)(nil)

func (s *SMTPNotifier) NotifyAmountMismatch(_ context.Context, c *charge.Charge, observedCents int64, source string) {
	if s.config.OperatorTo == "" {
		return
	}

	subject := fmt.Sprintf("Amount mismatch on charge %s", c.ExternalID())
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Settlement amount mismatch</h2>
			<p>A settlement observation was rejected because its amount does not match the stored charge.</p>
			<ul>
				<li>External ID: %s</li>
				<li>Transaction ID: %s</li>
				<li>Expected: %s</li>
				<li>Observed (minor units): %d</li>
				<li>Observation source: %s</li>
			</ul>
			<p>The charge remains pending. Review it before taking any manual action.</p>
		</body>
		</html>
	`, c.ExternalID(), c.TransactionID(), c.Amount().String(), observedCents, source)

	plainBody := fmt.Sprintf(`
Settlement amount mismatch

External ID: %s
Transaction ID: %s
Expected: %s
Observed (minor units): %d
Observation source: %s

The charge remains pending. Review it before taking any manual action.
	`, c.ExternalID(), c.TransactionID(), c.Amount().String(), observedCents, source)

	if err := s.sendEmail(s.config.OperatorTo, subject, htmlBody, plainBody); err != nil {
		s.logger.Errorw("failed to send mismatch alert",
			"external_id", c.ExternalID(),
			"error", err,
		)
		return
	}

	s.logger.Infow("mismatch alert sent",
		"external_id", c.ExternalID(),
		"to", s.config.OperatorTo,
	)
}

func (s *SMTPNotifier) sendEmail(to, subject, htmlBody, plainBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.config.FromAddress, s.config.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
