package services

import (
	"testing"
	"time"

	"github.com/Govind-619/Tutorix/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func pendingRecord(id uint, balance string, due time.Time) models.FeeRecord {
	return models.FeeRecord{
		ID:          id,
		FinalAmount: money(balance),
		PaidAmount:  decimal.Zero,
		Status:      models.FeeStatusPending,
		DueDate:     due,
	}
}

func sumAllocations(allocs []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.Amount)
	}
	return total
}

func TestAllocatePayment_OldestDueFirst(t *testing.T) {
	records := []models.FeeRecord{
		pendingRecord(1, "300", day(2024, time.January, 1)),
		pendingRecord(2, "500", day(2024, time.February, 1)),
	}

	allocs := AllocatePayment(money("600"), records)

	require.Len(t, allocs, 2)
	assert.Equal(t, uint(1), allocs[0].RecordID)
	assert.True(t, money("300").Equal(allocs[0].Amount))
	assert.Equal(t, uint(2), allocs[1].RecordID)
	assert.True(t, money("300").Equal(allocs[1].Amount))
}

func TestAllocatePayment_IgnoresInputOrder(t *testing.T) {
	// fetched newest first; allocation must still follow due dates
	records := []models.FeeRecord{
		pendingRecord(7, "500", day(2024, time.March, 1)),
		pendingRecord(9, "300", day(2024, time.January, 1)),
		pendingRecord(8, "200", day(2024, time.February, 1)),
	}

	allocs := AllocatePayment(money("450"), records)

	require.Len(t, allocs, 2)
	assert.Equal(t, uint(9), allocs[0].RecordID)
	assert.True(t, money("300").Equal(allocs[0].Amount))
	assert.Equal(t, uint(8), allocs[1].RecordID)
	assert.True(t, money("150").Equal(allocs[1].Amount))
	assert.Equal(t, uint(7), records[0].ID, "input slice must not be reordered")
}

func TestAllocatePayment_TieBreaksByID(t *testing.T) {
	due := day(2024, time.April, 10)
	records := []models.FeeRecord{
		pendingRecord(5, "100", due),
		pendingRecord(3, "100", due),
	}

	allocs := AllocatePayment(money("150"), records)

	require.Len(t, allocs, 2)
	assert.Equal(t, uint(3), allocs[0].RecordID)
	assert.Equal(t, uint(5), allocs[1].RecordID)
	assert.True(t, money("50").Equal(allocs[1].Amount))
}

func TestAllocatePayment_CapsAtBalance(t *testing.T) {
	partly := pendingRecord(1, "1000", day(2024, time.January, 1))
	partly.PaidAmount = money("700")
	records := []models.FeeRecord{partly, pendingRecord(2, "400", day(2024, time.February, 1))}

	allocs := AllocatePayment(money("700"), records)

	require.Len(t, allocs, 2)
	assert.True(t, money("300").Equal(allocs[0].Amount))
	assert.True(t, money("400").Equal(allocs[1].Amount))
	assert.True(t, money("700").Equal(sumAllocations(allocs)))
}

func TestAllocatePayment_RemainderGoesToLastRecord(t *testing.T) {
	records := []models.FeeRecord{
		pendingRecord(1, "100", day(2024, time.January, 1)),
		pendingRecord(2, "100", day(2024, time.February, 1)),
	}

	allocs := AllocatePayment(money("250"), records)

	require.Len(t, allocs, 2)
	assert.True(t, money("100").Equal(allocs[0].Amount))
	assert.True(t, money("150").Equal(allocs[1].Amount))
	assert.True(t, money("250").Equal(sumAllocations(allocs)))
}

func TestAllocatePayment_Properties(t *testing.T) {
	cases := []struct {
		name    string
		amount  string
		records []models.FeeRecord
	}{
		{"exact", "800", []models.FeeRecord{
			pendingRecord(1, "300", day(2024, time.January, 1)),
			pendingRecord(2, "500", day(2024, time.February, 1)),
		}},
		{"partial first", "120.50", []models.FeeRecord{
			pendingRecord(1, "300", day(2024, time.January, 1)),
			pendingRecord(2, "500", day(2024, time.February, 1)),
		}},
		{"three records", "999.99", []models.FeeRecord{
			pendingRecord(1, "333.33", day(2024, time.March, 1)),
			pendingRecord(2, "333.33", day(2024, time.January, 1)),
			pendingRecord(3, "333.33", day(2024, time.February, 1)),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := money(tc.amount)
			allocs := AllocatePayment(amount, tc.records)

			assert.True(t, amount.Equal(sumAllocations(allocs)), "shares must sum to the paid amount")

			balances := map[uint]decimal.Decimal{}
			due := map[uint]time.Time{}
			for _, r := range tc.records {
				balances[r.ID] = r.Balance()
				due[r.ID] = r.DueDate
			}
			for i, a := range allocs {
				assert.True(t, a.Amount.LessThanOrEqual(balances[a.RecordID]), "share exceeds balance")
				if i > 0 {
					assert.False(t, due[a.RecordID].Before(due[allocs[i-1].RecordID]), "allocation not in due date order")
				}
			}
		})
	}
}

func TestAllocatePayment_Empty(t *testing.T) {
	assert.Nil(t, AllocatePayment(money("100"), nil))
	assert.Nil(t, AllocatePayment(decimal.Zero, []models.FeeRecord{pendingRecord(1, "10", day(2024, time.January, 1))}))
}
