package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/leave-tracker/generic"
	"github.com/warp/leave-tracker/notify"
)

type recordingSink struct {
	sent []notify.Message
	err  error
}

func (r *recordingSink) Send(_ context.Context, msg notify.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func sampleRequest() generic.LeaveRequest {
	return generic.LeaveRequest{
		ID:           4,
		EmployeeName: "RACHEAL GAIL",
		LeaveType:    "Annual",
		StartDate:    generic.NewTimePoint(2026, time.March, 10),
		EndDate:      generic.NewTimePoint(2026, time.March, 12),
		Days:         generic.NewAmount(2.5, generic.UnitDays),
		Status:       generic.RequestPending,
	}
}

func TestNotifier_AppliedGoesToAdmin(t *testing.T) {
	sink := &recordingSink{}
	n := notify.NewWithSink(sink, "admin@example.com", "hr@example.com", zap.NewNop())

	n.LeaveApplied(context.Background(), sampleRequest())

	require.Len(t, sink.sent, 1)
	assert.Equal(t, notify.Message{
		To:      "admin@example.com",
		Subject: "New Leave Request",
		Body:    "RACHEAL GAIL applied for 2.5 days (Annual)",
	}, sink.sent[0])
}

func TestNotifier_DecisionsGoToNotifyAddress(t *testing.T) {
	sink := &recordingSink{}
	n := notify.NewWithSink(sink, "admin@example.com", "hr@example.com", zap.NewNop())
	req := sampleRequest()

	n.LeaveApproved(context.Background(), req)
	n.LeaveRejected(context.Background(), req)

	require.Len(t, sink.sent, 2)
	assert.Equal(t, "hr@example.com", sink.sent[0].To)
	assert.Equal(t, "Leave Approved", sink.sent[0].Subject)
	assert.Contains(t, sink.sent[0].Body, "2026-03-10 to 2026-03-12")
	assert.Equal(t, "hr@example.com", sink.sent[1].To)
	assert.Equal(t, "Leave Rejected", sink.sent[1].Subject)
}

func TestNotifier_NotifyAddressDefaultsToAdmin(t *testing.T) {
	sink := &recordingSink{}
	n := notify.NewWithSink(sink, "admin@example.com", "", zap.NewNop())

	n.LeaveApproved(context.Background(), sampleRequest())

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "admin@example.com", sink.sent[0].To)
}

func TestNotifier_NoRecipientSkipsSink(t *testing.T) {
	sink := &recordingSink{}
	n := notify.NewWithSink(sink, "", "", zap.NewNop())

	n.LeaveApplied(context.Background(), sampleRequest())

	assert.Empty(t, sink.sent)
}

func TestNotifier_DeliveryErrorIsLoggedNotReturned(t *testing.T) {
	// GIVEN: A sink that always fails
	core, logs := observer.New(zapcore.InfoLevel)
	sink := &recordingSink{err: errors.New("connection refused")}
	n := notify.NewWithSink(sink, "admin@example.com", "", zap.New(core))

	// WHEN: An event is delivered
	assert.NotPanics(t, func() {
		n.LeaveApplied(context.Background(), sampleRequest())
	})

	// THEN: The failure is logged with the request id
	entries := logs.FilterMessage("notification failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(4), entries[0].ContextMap()["request_id"])
}

func TestNew_SelectsSink(t *testing.T) {
	tests := []struct {
		name    string
		cfg     notify.Config
		logLine string
	}{
		{
			name:    "disabled",
			cfg:     notify.Config{Enabled: false, AdminEmail: "a@example.com"},
			logLine: "email notifications disabled",
		},
		{
			name:    "enabled without password",
			cfg:     notify.Config{Enabled: true, AdminEmail: "a@example.com"},
			logLine: "email notifications enabled but no SMTP password set, skipping delivery",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			n := notify.New(tt.cfg, zap.New(core))
			require.NotNil(t, n)
			assert.Equal(t, 1, logs.FilterMessage(tt.logLine).Len())

			// Nop sink: no delivery and no error log.
			n.LeaveApplied(context.Background(), sampleRequest())
			assert.Equal(t, 0, logs.FilterMessage("notification failed").Len())
		})
	}
}

func TestLogSink_WritesMessage(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := notify.NewLogSink(zap.New(core))

	err := sink.Send(context.Background(), notify.Message{To: "a@example.com", Subject: "New Leave Request", Body: "x"})
	require.NoError(t, err)

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "New Leave Request", entries[0].ContextMap()["subject"])
}

func TestSMTPSink_CancelledContext(t *testing.T) {
	sink := notify.NewSMTPSink(notify.SMTPConfig{Host: "127.0.0.1", Port: 1, Username: "u", Password: "p"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.Send(ctx, notify.Message{To: "a@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
