package store

import (
	"context"
	"time"

	"carestaff/internal/models"
)

type InvoiceStore struct {
	db DB
}

func NewInvoiceStore(db DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// NextSequence bumps the per-year invoice counter atomically and returns the
// new sequence. The counter row is upserted inside the caller's transaction,
// so concurrent creates serialize on it instead of racing a read-then-write.
func (s *InvoiceStore) NextSequence(ctx context.Context, tx Getter, year int) (int64, error) {
	var seq int64
	err := tx.GetContext(ctx, &seq, `
		INSERT INTO invoice_counters (year, seq)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = invoice_counters.seq + 1
		RETURNING seq
	`, year)
	return seq, err
}

type InvoiceInput struct {
	ID          string
	CareHomeID  string
	Number      string
	InvoiceDate time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	Subtotal    int64
	TaxRateBps  int64
	TaxAmount   int64
	Total       int64
	Status      string
	DueDate     time.Time
	Notes       string
}

func (s *InvoiceStore) Create(ctx context.Context, tx Execer, input InvoiceInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (id, care_home_id, number, invoice_date, period_start, period_end,
		                      subtotal, tax_rate_bps, tax_amount, total, status, due_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, input.ID, input.CareHomeID, input.Number, input.InvoiceDate, input.PeriodStart, input.PeriodEnd,
		input.Subtotal, input.TaxRateBps, input.TaxAmount, input.Total, input.Status, input.DueDate, input.Notes)
	return err
}

// LinkTimesheet attaches a timesheet to an invoice. The unique constraint on
// timesheet_id is the hard guarantee that a timesheet is billed at most once.
func (s *InvoiceStore) LinkTimesheet(ctx context.Context, tx Execer, invoiceID, timesheetID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoice_timesheets (invoice_id, timesheet_id)
		VALUES ($1, $2)
	`, invoiceID, timesheetID)
	return err
}

const invoiceColumns = `
	id, care_home_id, number, invoice_date, period_start, period_end,
	subtotal, tax_rate_bps, tax_amount, total, status, due_date, paid_at, notes, created_at
`

func (s *InvoiceStore) GetByID(ctx context.Context, invoiceID string) (models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.GetContext(ctx, &invoice, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1
	`, invoiceID)
	return invoice, err
}

func (s *InvoiceStore) GetForUpdate(ctx context.Context, tx Getter, invoiceID string) (models.Invoice, error) {
	var invoice models.Invoice
	err := tx.GetContext(ctx, &invoice, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1
		FOR UPDATE
	`, invoiceID)
	return invoice, err
}

func (s *InvoiceStore) ListByCareHome(ctx context.Context, careHomeID string, limit, offset int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.SelectContext(ctx, &invoices, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE care_home_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, careHomeID, limit, offset)
	return invoices, err
}

// UnlinkTimesheets releases an invoice's timesheets so a cancelled invoice's
// work can be billed again.
func (s *InvoiceStore) UnlinkTimesheets(ctx context.Context, tx Execer, invoiceID string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM invoice_timesheets
		WHERE invoice_id = $1
	`, invoiceID)
	return err
}

// ListLinkedTimesheets reads outside any transaction; settlement uses
// ListTimesheets with its own transaction instead.
func (s *InvoiceStore) ListLinkedTimesheets(ctx context.Context, invoiceID string) ([]models.Timesheet, error) {
	return s.ListTimesheets(ctx, s.db, invoiceID)
}

func (s *InvoiceStore) ListTimesheets(ctx context.Context, selecter Selecter, invoiceID string) ([]models.Timesheet, error) {
	var timesheets []models.Timesheet
	err := selecter.SelectContext(ctx, &timesheets, `
		SELECT `+timesheetColumns+`
		FROM timesheets t
		JOIN invoice_timesheets it ON it.timesheet_id = t.id
		WHERE it.invoice_id = $1
		ORDER BY t.clock_in
	`, invoiceID)
	return timesheets, err
}

// MarkSent, MarkCancelled and MarkPaid are guarded moves; zero rows affected
// means the invoice was not in an eligible state.

func (s *InvoiceStore) MarkSent(ctx context.Context, tx Execer, invoiceID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'sent', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, invoiceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *InvoiceStore) MarkCancelled(ctx context.Context, tx Execer, invoiceID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'sent')
	`, invoiceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *InvoiceStore) MarkPaid(ctx context.Context, tx Execer, invoiceID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'paid', paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'sent')
	`, invoiceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkOverdue flips sent invoices past their due date, used by the admin
// sweep endpoint.
func (s *InvoiceStore) MarkOverdue(ctx context.Context, tx Execer, asOf time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET status = 'overdue', updated_at = NOW()
		WHERE status = 'sent' AND due_date < $1
	`, asOf)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
