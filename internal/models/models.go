package models

import "time"

// Roles carried by the authenticated principal.
const (
	RoleAdmin         = "admin"
	RoleCareHomeAdmin = "care_home_admin"
	RoleHealthWorker  = "health_worker"
)

// Wallet owner kinds. A wallet belongs to exactly one care home or worker.
const (
	OwnerCareHome = "care_home"
	OwnerWorker   = "worker"
)

// Ledger entry directions and categories.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"

	CategoryManualCredit     = "manual_credit"
	CategoryManualDebit      = "manual_debit"
	CategoryInvoicePayment   = "invoice_payment"
	CategoryTimesheetPayment = "timesheet_payment"
	CategoryRefund           = "refund"
	CategoryAdjustment       = "adjustment"
	CategoryWithdrawal       = "withdrawal"
)

// Timesheet statuses.
const (
	TimesheetDraft     = "draft"
	TimesheetSubmitted = "submitted"
	TimesheetApproved  = "approved"
	TimesheetQueried   = "queried"
	TimesheetRejected  = "rejected"
	TimesheetPaid      = "paid"
)

// Invoice statuses.
const (
	InvoicePending   = "pending"
	InvoiceSent      = "sent"
	InvoicePaid      = "paid"
	InvoiceOverdue   = "overdue"
	InvoiceCancelled = "cancelled"
)

// Shift and application statuses.
const (
	ShiftDraft     = "draft"
	ShiftPublished = "published"
	ShiftFilled    = "filled"
	ShiftCancelled = "cancelled"
	ShiftCompleted = "completed"

	ApplicationPending   = "pending"
	ApplicationAccepted  = "accepted"
	ApplicationRejected  = "rejected"
	ApplicationWithdrawn = "withdrawn"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CareHomeID   *string   `db:"care_home_id" json:"care_home_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type CareHome struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OwnerRef identifies a wallet owner: a care home or a worker.
type OwnerRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type Wallet struct {
	ID            string     `db:"id" json:"id"`
	OwnerType     string     `db:"owner_type" json:"owner_type"`
	OwnerID       string     `db:"owner_id" json:"owner_id"`
	Balance       int64      `db:"balance" json:"balance"`
	TotalCredited int64      `db:"total_credited" json:"total_credited"`
	TotalDebited  int64      `db:"total_debited" json:"total_debited"`
	Currency      string     `db:"currency" json:"currency"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// WalletTransaction is an immutable ledger entry. Completed entries are never
// updated; balance_before/balance_after snapshot the wallet around the move.
type WalletTransaction struct {
	ID              string     `db:"id" json:"id"`
	WalletID        string     `db:"wallet_id" json:"wallet_id"`
	Direction       string     `db:"direction" json:"direction"`
	Amount          int64      `db:"amount" json:"amount"`
	BalanceBefore   int64      `db:"balance_before" json:"balance_before"`
	BalanceAfter    int64      `db:"balance_after" json:"balance_after"`
	Category        string     `db:"category" json:"category"`
	Description     string     `db:"description" json:"description"`
	Reason          *string    `db:"reason" json:"reason,omitempty"`
	ProofPath       *string    `db:"proof_path" json:"proof_path,omitempty"`
	PerformedByType *string    `db:"performed_by_type" json:"performed_by_type,omitempty"`
	PerformedByID   *string    `db:"performed_by_id" json:"performed_by_id,omitempty"`
	InvoiceID       *string    `db:"invoice_id" json:"invoice_id,omitempty"`
	TimesheetID     *string    `db:"timesheet_id" json:"timesheet_id,omitempty"`
	Status          string     `db:"status" json:"status"`
	Metadata        string     `db:"metadata" json:"metadata"`
	ClientRequestID *string    `db:"client_request_id" json:"client_request_id,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

type Shift struct {
	ID           string    `db:"id" json:"id"`
	CareHomeID   string    `db:"care_home_id" json:"care_home_id"`
	Title        string    `db:"title" json:"title"`
	RoleRequired string    `db:"role_required" json:"role_required"`
	ShiftDate    time.Time `db:"shift_date" json:"shift_date"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	HourlyRate   int64     `db:"hourly_rate" json:"hourly_rate"`
	Status       string    `db:"status" json:"status"`
	Description  string    `db:"description" json:"description"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Application struct {
	ID        string     `db:"id" json:"id"`
	ShiftID   string     `db:"shift_id" json:"shift_id"`
	WorkerID  string     `db:"worker_id" json:"worker_id"`
	Status    string     `db:"status" json:"status"`
	CoverNote string     `db:"cover_note" json:"cover_note"`
	AppliedAt time.Time  `db:"applied_at" json:"applied_at"`
	DecidedAt *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy *string    `db:"decided_by" json:"decided_by,omitempty"`
}

// Timesheet tracks clocked time against a shift. Hours are stored as
// hundredths (7.50h -> 750) so derived values stay exact in integer columns.
type Timesheet struct {
	ID                string     `db:"id" json:"id"`
	ShiftID           string     `db:"shift_id" json:"shift_id"`
	WorkerID          string     `db:"worker_id" json:"worker_id"`
	CareHomeID        string     `db:"care_home_id" json:"care_home_id"`
	ClockIn           time.Time  `db:"clock_in" json:"clock_in"`
	ClockOut          *time.Time `db:"clock_out" json:"clock_out,omitempty"`
	BreakMinutes      int        `db:"break_minutes" json:"break_minutes"`
	TotalHours        *int64     `db:"total_hours_hundredths" json:"total_hours_hundredths,omitempty"`
	HourlyRate        int64      `db:"hourly_rate" json:"hourly_rate"`
	TotalPay          *int64     `db:"total_pay" json:"total_pay,omitempty"`
	Status            string     `db:"status" json:"status"`
	WorkerNotes       string     `db:"worker_notes" json:"worker_notes"`
	ManagerNotes      string     `db:"manager_notes" json:"manager_notes"`
	ApprovedBy        *string    `db:"approved_by" json:"approved_by,omitempty"`
	SubmittedAt       *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt        *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	HasOvertime       bool       `db:"has_overtime" json:"has_overtime"`
	OvertimeHours     int64      `db:"overtime_hours_hundredths" json:"overtime_hours_hundredths"`
	OvertimeRate      *int64     `db:"overtime_rate" json:"overtime_rate,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

type Invoice struct {
	ID          string     `db:"id" json:"id"`
	CareHomeID  string     `db:"care_home_id" json:"care_home_id"`
	Number      string     `db:"number" json:"number"`
	InvoiceDate time.Time  `db:"invoice_date" json:"invoice_date"`
	PeriodStart time.Time  `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time  `db:"period_end" json:"period_end"`
	Subtotal    int64      `db:"subtotal" json:"subtotal"`
	TaxRateBps  int64      `db:"tax_rate_bps" json:"tax_rate_bps"`
	TaxAmount   int64      `db:"tax_amount" json:"tax_amount"`
	Total       int64      `db:"total" json:"total"`
	Status      string     `db:"status" json:"status"`
	DueDate     time.Time  `db:"due_date" json:"due_date"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	Notes       string     `db:"notes" json:"notes"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
