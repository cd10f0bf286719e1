/*
Package notify delivers leave events by email.

PURPOSE:
  Turns ledger events (applied, approved, rejected) into short plain-text
  messages and hands them to a Sink. Delivery is best effort: failures are
  logged and never reach the ledger.

SINKS:
  SMTPSink:  gomail over SMTP (STARTTLS negotiated by gomail)
  LogSink:   Writes the message to the logger instead of sending it
  NopSink:   Drops everything

ROUTING:
  Applied           -> AdminEmail   "New Leave Request"
  Approved/Rejected -> NotifyEmail  "Leave Approved" / "Leave Rejected"

SEE ALSO:
  - timeoff/ledger.go: Notifier interface and call sites
  - config/config.go: SMTP and address settings
*/
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/warp/leave-tracker/generic"
	"github.com/warp/leave-tracker/timeoff"
)

// Message is one outgoing notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sink delivers messages.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// SINKS
// =============================================================================

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSink sends mail with gomail.
type SMTPSink struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSink(cfg SMTPConfig) *SMTPSink {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPSink{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
	}
}

func (s *SMTPSink) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// LogSink logs messages at info level.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.L()
	}
	return &LogSink{logger: logger.Named("notify.log")}
}

func (s *LogSink) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// NopSink discards messages.
type NopSink struct{}

func (NopSink) Send(context.Context, Message) error { return nil }

// =============================================================================
// NOTIFIER
// =============================================================================

// Config selects the sink and the recipients.
type Config struct {
	Enabled bool
	// LogOnly logs messages instead of sending them.
	LogOnly     bool
	AdminEmail  string
	NotifyEmail string
	SMTP        SMTPConfig
}

// Notifier implements timeoff.Notifier.
type Notifier struct {
	sink        Sink
	adminEmail  string
	notifyEmail string
	logger      *zap.Logger
}

var _ timeoff.Notifier = (*Notifier)(nil)

// New picks a sink from cfg. Email is skipped entirely when disabled or
// when no SMTP password is configured.
func New(cfg Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.Named("notify")

	var sink Sink
	switch {
	case cfg.LogOnly:
		sink = NewLogSink(logger)
	case !cfg.Enabled:
		logger.Info("email notifications disabled")
		sink = NopSink{}
	case cfg.SMTP.Password == "":
		logger.Warn("email notifications enabled but no SMTP password set, skipping delivery")
		sink = NopSink{}
	default:
		if cfg.SMTP.From == "" {
			cfg.SMTP.From = cfg.AdminEmail
		}
		sink = NewSMTPSink(cfg.SMTP)
	}
	return NewWithSink(sink, cfg.AdminEmail, cfg.NotifyEmail, logger)
}

// NewWithSink builds a notifier around an explicit sink. An empty notify
// address falls back to the admin address.
func NewWithSink(sink Sink, adminEmail, notifyEmail string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.L().Named("notify")
	}
	if notifyEmail == "" {
		notifyEmail = adminEmail
	}
	return &Notifier{
		sink:        sink,
		adminEmail:  adminEmail,
		notifyEmail: notifyEmail,
		logger:      logger,
	}
}

func (n *Notifier) LeaveApplied(ctx context.Context, req generic.LeaveRequest) {
	n.deliver(ctx, req, Message{
		To:      n.adminEmail,
		Subject: "New Leave Request",
		Body:    fmt.Sprintf("%s applied for %s days (%s)", req.EmployeeName, req.Days, req.LeaveType),
	})
}

func (n *Notifier) LeaveApproved(ctx context.Context, req generic.LeaveRequest) {
	n.deliver(ctx, req, Message{
		To:      n.notifyEmail,
		Subject: "Leave Approved",
		Body: fmt.Sprintf("%s's %s leave from %s to %s (%s days) was approved",
			req.EmployeeName, req.LeaveType, req.StartDate, req.EndDate, req.Days),
	})
}

func (n *Notifier) LeaveRejected(ctx context.Context, req generic.LeaveRequest) {
	n.deliver(ctx, req, Message{
		To:      n.notifyEmail,
		Subject: "Leave Rejected",
		Body: fmt.Sprintf("%s's %s leave from %s to %s (%s days) was rejected",
			req.EmployeeName, req.LeaveType, req.StartDate, req.EndDate, req.Days),
	})
}

func (n *Notifier) deliver(ctx context.Context, req generic.LeaveRequest, msg Message) {
	if msg.To == "" {
		n.logger.Debug("no recipient configured, notification dropped",
			zap.String("subject", msg.Subject))
		return
	}
	if err := n.sink.Send(ctx, msg); err != nil {
		n.logger.Error("notification failed",
			zap.Int64("request_id", int64(req.ID)),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
	}
}
