package domain

import (
	"fmt"
	"strings"
	"time"
)

// PaymentMethodType is the settlement instrument kind.
type PaymentMethodType string

const (
	PaymentCreditCard   PaymentMethodType = "credit_card"
	PaymentDebitCard    PaymentMethodType = "debit_card"
	PaymentEMoney       PaymentMethodType = "e_money"
	PaymentCash         PaymentMethodType = "cash"
	PaymentBankTransfer PaymentMethodType = "bank_transfer"
)

// PaymentMethodTypes lists every instrument kind.
var PaymentMethodTypes = []PaymentMethodType{
	PaymentCreditCard,
	PaymentDebitCard,
	PaymentEMoney,
	PaymentCash,
	PaymentBankTransfer,
}

// Validate rejects unknown kinds.
func (t PaymentMethodType) Validate() error {
	switch t {
	case PaymentCreditCard, PaymentDebitCard, PaymentEMoney, PaymentCash, PaymentBankTransfer:
		return nil
	default:
		return fmt.Errorf("unknown payment method type %q: %w", t, ErrInvalidArgument)
	}
}

// Deferred reports whether transactions on this instrument settle on a later
// billing-cycle date instead of the transaction date.
func (t PaymentMethodType) Deferred() bool {
	switch t {
	case PaymentCreditCard:
		return true
	case PaymentDebitCard, PaymentEMoney, PaymentCash, PaymentBankTransfer:
		return false
	default:
		panic(fmt.Sprintf("domain: unhandled payment method type %q", t))
	}
}

// PaymentMethod is a settlement instrument linked to an asset account.
// ClosingDay and WithdrawalDay are only meaningful for credit cards; zero
// means unset.
type PaymentMethod struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Type           PaymentMethodType `json:"type"`
	AssetAccountID string            `json:"asset_account_id"`
	ClosingDay     int               `json:"closing_day,omitempty"`
	WithdrawalDay  int               `json:"withdrawal_day,omitempty"`
	Memo           string            `json:"memo,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Validate checks the credit-card billing-cycle invariant.
func (pm PaymentMethod) Validate() error {
	if strings.TrimSpace(pm.Name) == "" {
		return fmt.Errorf("payment method name is required: %w", ErrInvalidArgument)
	}
	if pm.AssetAccountID == "" {
		return fmt.Errorf("payment method %q: asset account is required: %w", pm.Name, ErrInvalidArgument)
	}
	if err := pm.Type.Validate(); err != nil {
		return err
	}
	if pm.Type == PaymentCreditCard {
		if pm.ClosingDay < 1 || pm.ClosingDay > 31 {
			return fmt.Errorf("credit card closing day must be 1-31, got %d: %w", pm.ClosingDay, ErrInvalidArgument)
		}
		if pm.WithdrawalDay < 1 || pm.WithdrawalDay > 31 {
			return fmt.Errorf("credit card withdrawal day must be 1-31, got %d: %w", pm.WithdrawalDay, ErrInvalidArgument)
		}
	}
	return nil
}

// NewPaymentMethod validates and builds a payment method. Billing days are
// dropped for instruments that settle immediately.
func NewPaymentMethod(pm PaymentMethod, now time.Time) (PaymentMethod, error) {
	pm.Name = strings.TrimSpace(pm.Name)
	if pm.Type != PaymentCreditCard {
		pm.ClosingDay, pm.WithdrawalDay = 0, 0
	}
	if err := pm.Validate(); err != nil {
		return PaymentMethod{}, fmt.Errorf("NewPaymentMethod: %w", err)
	}
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = now
	}
	pm.UpdatedAt = now
	return pm, nil
}

// SettlesImmediately reports whether transactions settle on their own date.
func (pm PaymentMethod) SettlesImmediately() bool {
	return !pm.Type.Deferred()
}
