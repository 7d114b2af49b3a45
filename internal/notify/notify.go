package notify

import (
	"context"
	"log"
)

// Template keys for outbound notifications.
const (
	TemplateTimesheetApproved = "timesheet_approved"
	TemplateTimesheetQueried  = "timesheet_queried"
	TemplateTimesheetRejected = "timesheet_rejected"
	TemplateTimesheetPaid     = "timesheet_paid"
	TemplateInvoicePaid       = "invoice_paid"
	TemplateWalletCredited    = "wallet_credited"
	TemplateWalletDebited     = "wallet_debited"
)

// Notifier delivers a templated notification to a user. Delivery is
// fire-and-forget: callers log failures and never roll back the business
// mutation that triggered the notification.
type Notifier interface {
	Send(ctx context.Context, recipientUserID, template string, data map[string]string) error
}

// LogNotifier is the default sink when no real delivery channel is wired.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, recipientUserID, template string, data map[string]string) error {
	log.Printf("notify %s template=%s data=%v", recipientUserID, template, data)
	return nil
}
