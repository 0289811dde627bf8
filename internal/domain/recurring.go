package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/calendar"
	"github.com/dvloznov/finance-ledger/internal/money"
)

// Frequency is how often a recurring template fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Validate rejects unknown frequencies.
func (f Frequency) Validate() error {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return nil
	default:
		return fmt.Errorf("unknown frequency %q: %w", f, ErrInvalidArgument)
	}
}

// RecurringTransaction is a template expanded into transactions on the
// calendar dates it matches.
//
// DayOfMonth (1-31) is required for monthly templates and DayOfWeek (ISO,
// Monday=1 ... Sunday=7) for weekly ones. Yearly templates fire on the
// month and day of StartDate. AssetAccountID may be empty, in which case the
// payment method's linked account is used.
type RecurringTransaction struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Amount          money.Amount    `json:"amount"`
	Type            TransactionType `json:"type"`
	PaymentMethodID string          `json:"payment_method_id"`
	CategoryID      string          `json:"category_id,omitempty"`
	AssetAccountID  string          `json:"asset_account_id,omitempty"`
	Frequency       Frequency       `json:"frequency"`
	StartDate       civil.Date      `json:"start_date"`
	EndDate         *civil.Date     `json:"end_date,omitempty"`
	DayOfMonth      int             `json:"day_of_month,omitempty"`
	DayOfWeek       int             `json:"day_of_week,omitempty"`
	Active          bool            `json:"active"`
	Memo            string          `json:"memo,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate checks the template's own fields.
func (r RecurringTransaction) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("recurring template name is required: %w", ErrInvalidArgument)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("recurring amount must be positive, got %s: %w", r.Amount, ErrInvalidArgument)
	}
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if r.PaymentMethodID == "" {
		return fmt.Errorf("payment method is required: %w", ErrInvalidArgument)
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	if !r.StartDate.IsValid() {
		return fmt.Errorf("invalid start date %q: %w", r.StartDate, ErrInvalidArgument)
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("end date %s is before start date %s: %w", r.EndDate, r.StartDate, ErrInvalidArgument)
	}
	switch r.Frequency {
	case FrequencyWeekly:
		if r.DayOfWeek < 1 || r.DayOfWeek > 7 {
			return fmt.Errorf("weekly template needs day of week 1-7, got %d: %w", r.DayOfWeek, ErrInvalidArgument)
		}
	case FrequencyMonthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return fmt.Errorf("monthly template needs day of month 1-31, got %d: %w", r.DayOfMonth, ErrInvalidArgument)
		}
	}
	return nil
}

// InRange reports whether date lies within [StartDate, EndDate].
func (r RecurringTransaction) InRange(date civil.Date) bool {
	if date.Before(r.StartDate) {
		return false
	}
	return r.EndDate == nil || !date.After(*r.EndDate)
}

// ShouldFire reports whether the template is due on date. Activity is not
// considered here.
//
// Monthly templates match the exact day of month only, so a template on
// day 31 does not fire in shorter months.
func (r RecurringTransaction) ShouldFire(date civil.Date) bool {
	if !r.InRange(date) {
		return false
	}
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return calendar.ISOWeekday(date) == r.DayOfWeek
	case FrequencyMonthly:
		return date.Day == r.DayOfMonth
	case FrequencyYearly:
		return date.Month == r.StartDate.Month && date.Day == r.StartDate.Day
	default:
		return false
	}
}

// AutoMemo is the memo stamped on transactions generated from r.
func (r RecurringTransaction) AutoMemo() string {
	return "[auto] " + r.Name
}
