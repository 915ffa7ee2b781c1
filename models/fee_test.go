package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFeeRecord_CreditDebit(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	r := FeeRecord{FinalAmount: d("1000"), PaidAmount: decimal.Zero, Status: FeeStatusPending}

	r.Credit(d("600"), now)
	assert.Equal(t, FeeStatusPartiallyPaid, r.Status)
	assert.Nil(t, r.PaidAt)
	assert.True(t, d("400").Equal(r.Balance()))

	r.Credit(d("400"), now)
	assert.Equal(t, FeeStatusPaid, r.Status)
	assert.Equal(t, &now, r.PaidAt)
	assert.True(t, r.Balance().IsZero())
	assert.True(t, r.IsSettled())

	r.Debit(d("200"))
	assert.Equal(t, FeeStatusPartiallyPaid, r.Status)
	assert.Nil(t, r.PaidAt)

	r.Debit(d("5000"))
	assert.True(t, r.PaidAmount.IsZero())
	assert.Equal(t, FeeStatusPending, r.Status)
}

func TestFeeRecord_OverpaymentKeepsBalanceAtZero(t *testing.T) {
	r := FeeRecord{FinalAmount: d("300"), PaidAmount: d("300"), Status: FeeStatusPaid}
	r.Credit(d("50"), time.Now())
	assert.True(t, r.Balance().IsZero())
	assert.Equal(t, FeeStatusPaid, r.Status)
}

func TestFeeRecord_WaivedIsSticky(t *testing.T) {
	r := FeeRecord{FinalAmount: d("300"), PaidAmount: decimal.Zero, Status: FeeStatusWaived}
	r.Credit(d("300"), time.Now())
	assert.Equal(t, FeeStatusWaived, r.Status)
	assert.True(t, r.IsSettled())
}

func TestFeeStructure_PayableAmount(t *testing.T) {
	custom := d("800")
	tests := []struct {
		name   string
		s      FeeStructure
		custom *decimal.Decimal
		want   string
	}{
		{"no tax", FeeStructure{Amount: d("1000"), TaxType: TaxNone}, nil, "1000"},
		{"inclusive gst", FeeStructure{Amount: d("1000"), TaxType: TaxInclusive, GSTRate: d("18")}, nil, "1000"},
		{"exclusive gst", FeeStructure{Amount: d("1000"), TaxType: TaxExclusive, GSTRate: d("18")}, nil, "1180"},
		{"custom amount with gst", FeeStructure{Amount: d("1000"), TaxType: TaxExclusive, GSTRate: d("18")}, &custom, "944"},
		{"rounded to paise", FeeStructure{Amount: d("999.99"), TaxType: TaxExclusive, GSTRate: d("5")}, nil, "1049.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.PayableAmount(tt.custom)
			assert.True(t, d(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestFeePayment_Refundable(t *testing.T) {
	p := FeePayment{Amount: d("500"), Refunds: []FeeRefund{{Amount: d("100")}, {Amount: d("150")}}}
	assert.True(t, d("250").Equal(p.RefundedAmount()))
	assert.True(t, d("250").Equal(p.Refundable()))

	p.Refunds = append(p.Refunds, FeeRefund{Amount: d("400")})
	assert.True(t, p.Refundable().IsZero())
}

func TestHasAnyRole(t *testing.T) {
	assert.True(t, HasAnyRole(RoleOwner, RoleAdmin))
	assert.True(t, HasAnyRole(RoleAdmin, FeeAdminRoles...))
	assert.False(t, HasAnyRole(RoleTeacher, FeeAdminRoles...))
	assert.True(t, HasAnyRole(RoleStudent))
	assert.False(t, HasAnyRole(Role("GUEST")))
	assert.False(t, HasAnyRole(RoleParent, RoleStudent))
}

func TestPaymentSettings(t *testing.T) {
	s := PaymentSettings{BankAccountNumber: "123456789012"}
	assert.Equal(t, "XXXXXXXX9012", s.MaskedAccountNumber())

	s.LinkedAccountID = "acc_1"
	assert.False(t, s.RoutesToLinkedAccount())
	s.LinkedAccountStatus = LinkedAccountActivated
	assert.True(t, s.RoutesToLinkedAccount())
	s.UseOwnGateway = true
	assert.False(t, s.RoutesToLinkedAccount())
	assert.False(t, s.HasOwnCredentials())
}
