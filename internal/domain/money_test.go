package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyArithmetic(t *testing.T) {
	a := MustMoney("750", "usd")
	b := MustMoney("100.50", "USD")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sum.Amount.Equal(decimal.RequireFromString("850.50")) || sum.Currency != "USD" {
		t.Errorf("Add = %v, want 850.50 USD", sum)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff.String() != "649.50 USD" {
		t.Errorf("Sub = %s, want 649.50 USD", diff)
	}

	if got := b.Mul(3).String(); got != "301.50 USD" {
		t.Errorf("Mul = %s, want 301.50 USD", got)
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	if _, err := MustMoney("1", "USD").Add(MustMoney("1", "DAI")); err == nil {
		t.Error("expected currency mismatch error from Add")
	}
	if _, err := MustMoney("1", "USD").Sub(MustMoney("1", "USDC")); err == nil {
		t.Error("expected currency mismatch error from Sub")
	}
}

func TestFrequencyMonths(t *testing.T) {
	if FrequencyMonthly.Months() != 1 || FrequencyAnnually.Months() != 12 {
		t.Errorf("unexpected period lengths: %d, %d", FrequencyMonthly.Months(), FrequencyAnnually.Months())
	}
	if Frequency("weekly").Valid() {
		t.Error("weekly should not be a valid frequency")
	}
}
