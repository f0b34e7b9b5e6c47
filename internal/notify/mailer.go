// Package notify sends the operator notification and client confirmation for
// each accepted brief through SendGrid. The two sends are independent: each
// is rate-limited, each failure is logged on its own, and neither can block
// the other or the HTTP response.
package notify

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-intake/internal/config"
	"github.com/sells-group/lead-intake/internal/model"
	"github.com/sells-group/lead-intake/internal/ratelimit"
)

// operatorLimitKey is the fixed rate-limit key for operator mail; client
// mail is keyed by recipient address.
const operatorLimitKey = "operator-notifications"

// Sender is the SendGrid send operation, narrowed for test stubs.
type Sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// Dispatcher sends brief notifications. A nil client (no API key) turns
// every send into a logged no-op.
type Dispatcher struct {
	client  Sender
	limiter *ratelimit.Limiter
	cfg     config.SendGridConfig
}

// NewDispatcher creates a Dispatcher. Sending is disabled when cfg.Key is
// empty.
func NewDispatcher(cfg config.SendGridConfig, limiter *ratelimit.Limiter) *Dispatcher {
	var client Sender
	if cfg.Key != "" {
		client = sendgrid.NewSendClient(cfg.Key)
	}
	return &Dispatcher{client: client, limiter: limiter, cfg: cfg}
}

// newTestDispatcher wires a stub sender; used by package tests.
func newTestDispatcher(cfg config.SendGridConfig, limiter *ratelimit.Limiter, client Sender) *Dispatcher {
	return &Dispatcher{client: client, limiter: limiter, cfg: cfg}
}

// Dispatch fires the operator notification and the client confirmation
// concurrently. Failures are logged per channel and swallowed; Dispatch
// itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, input model.BriefInput, analysis model.Analysis) {
	if d.client == nil {
		zap.L().Info("email sending disabled, skipping notifications")
		return
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.sendOperatorNotification(input, analysis); err != nil {
			zap.L().Error("operator notification failed",
				zap.String("submitter", input.Email),
				zap.Error(err),
			)
		}
		return nil
	})
	g.Go(func() error {
		if err := d.sendClientConfirmation(input); err != nil {
			zap.L().Error("client confirmation failed",
				zap.String("recipient", input.Email),
				zap.Error(err),
			)
		}
		return nil
	})
	_ = g.Wait()
}

func (d *Dispatcher) sendOperatorNotification(input model.BriefInput, analysis model.Analysis) error {
	if !d.limiter.Allow(operatorLimitKey) {
		zap.L().Warn("operator notification rate limited")
		return nil
	}

	html, err := renderOperatorHTML(input, analysis)
	if err != nil {
		return err
	}

	msg := d.buildMessage(
		d.cfg.OperatorName, d.cfg.OperatorTo,
		"New project brief: "+input.Name,
		operatorPlainText(input, analysis), html,
	)
	return d.send(msg, d.cfg.OperatorTo)
}

func (d *Dispatcher) sendClientConfirmation(input model.BriefInput) error {
	if !d.limiter.Allow(input.Email) {
		zap.L().Warn("client confirmation rate limited",
			zap.String("recipient", input.Email),
		)
		return nil
	}

	html, err := renderClientHTML(input)
	if err != nil {
		return err
	}

	msg := d.buildMessage(
		input.Name, input.Email,
		"We received your project brief",
		clientPlainText(input), html,
	)
	return d.send(msg, input.Email)
}

func (d *Dispatcher) buildMessage(toName, toAddr, subject, plain, html string) *mail.SGMailV3 {
	from := mail.NewEmail(d.cfg.FromName, d.cfg.FromEmail)
	to := mail.NewEmail(toName, toAddr)

	msg := mail.NewV3Mail()
	msg.SetFrom(from)
	msg.Subject = subject

	p := mail.NewPersonalization()
	p.AddTos(to)
	msg.AddPersonalizations(p)

	msg.AddContent(mail.NewContent("text/plain", plain))
	msg.AddContent(mail.NewContent("text/html", html))
	return msg
}

func (d *Dispatcher) send(msg *mail.SGMailV3, recipient string) error {
	resp, err := d.client.Send(msg)
	if err != nil {
		return eris.Wrap(err, "notify: send")
	}
	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: send returned status %d", resp.StatusCode)
	}
	zap.L().Info("email sent",
		zap.String("recipient", recipient),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
