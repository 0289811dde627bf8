package domain

import (
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/calendar"
)

// SettlementDate returns the date on which a transaction made on txDate with
// pm moves money.
//
// Immediate instruments settle on txDate. For credit cards the cycle closes on
// ClosingDay (clamped to the month's length) of txDate's month when txDate is
// on or before it, otherwise on the clamped ClosingDay of the next month.
// Settlement is the clamped WithdrawalDay of the month after the closing month.
func SettlementDate(txDate civil.Date, pm PaymentMethod) (civil.Date, error) {
	if pm.SettlesImmediately() {
		return txDate, nil
	}
	if pm.ClosingDay < 1 || pm.ClosingDay > 31 || pm.WithdrawalDay < 1 || pm.WithdrawalDay > 31 {
		return civil.Date{}, fmt.Errorf("SettlementDate: payment method %s has closing day %d, withdrawal day %d: %w",
			pm.ID, pm.ClosingDay, pm.WithdrawalDay, ErrInvalidArgument)
	}

	closing := calendar.Clamp(txDate.Year, txDate.Month, pm.ClosingDay)
	if txDate.After(closing) {
		y, m := calendar.AddMonths(txDate.Year, txDate.Month, 1)
		closing = calendar.Clamp(y, m, pm.ClosingDay)
	}

	y, m := calendar.AddMonths(closing.Year, closing.Month, 1)
	return calendar.Clamp(y, m, pm.WithdrawalDay), nil
}
