package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/money"
)

func TestMergeEffects(t *testing.T) {
	got := MergeEffects([]domain.BalanceEffect{
		{AccountID: "b", Delta: money.New(-300)},
		{AccountID: "a", Delta: money.New(100)},
		{AccountID: "b", Delta: money.New(300)},
		{AccountID: "", Delta: money.New(5)},
		{AccountID: "a", Delta: money.New(50)},
	})
	if len(got) != 1 || got[0].AccountID != "a" || !got[0].Delta.Equal(money.New(150)) {
		t.Errorf("MergeEffects() = %+v, want only a:150", got)
	}

	if got := MergeEffects(nil); len(got) != 0 {
		t.Errorf("MergeEffects(nil) = %+v", got)
	}
}

func TestApplyEffects(t *testing.T) {
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	accounts := map[string]domain.AssetAccount{
		"main": {ID: "main", Name: "Main", Balance: money.New(1000)},
		"save": {ID: "save", Name: "Savings", Balance: money.New(0)},
	}
	get := func(id string) (domain.AssetAccount, error) {
		a, ok := accounts[id]
		if !ok {
			return domain.AssetAccount{}, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
		}
		return a, nil
	}

	updated, err := ApplyEffects([]domain.BalanceEffect{
		{AccountID: "main", Delta: money.New(-250)},
		{AccountID: "save", Delta: money.New(250)},
	}, now, get)
	if err != nil {
		t.Fatalf("ApplyEffects() error = %v", err)
	}
	balances := map[string]string{}
	for _, a := range updated {
		balances[a.ID] = a.Balance.String()
		if !a.UpdatedAt.Equal(now) {
			t.Errorf("%s UpdatedAt = %v, want %v", a.ID, a.UpdatedAt, now)
		}
	}
	if diff := cmp.Diff(map[string]string{"main": "750", "save": "250"}, balances); diff != "" {
		t.Errorf("balances mismatch (-want +got):\n%s", diff)
	}

	if _, err := ApplyEffects([]domain.BalanceEffect{{AccountID: "gone", Delta: money.New(1)}}, now, get); err == nil {
		t.Error("ApplyEffects() on a missing account succeeded")
	}
}
