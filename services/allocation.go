package services

import (
	"sort"

	"github.com/Govind-619/Tutorix/models"
	"github.com/shopspring/decimal"
)

// Allocation is the share of a multi-record payment credited to one record
type Allocation struct {
	RecordID uint            `json:"record_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// AllocatePayment splits amount over records, oldest due date first (ties by
// id), capping each share at the record's balance. Whatever is left once every
// balance is covered goes to the last record so the shares always sum to
// amount. Records that receive nothing are omitted. The input slice is not
// reordered.
func AllocatePayment(amount decimal.Decimal, records []models.FeeRecord) []Allocation {
	if len(records) == 0 || !amount.IsPositive() {
		return nil
	}
	ordered := make([]models.FeeRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].DueDate.Equal(ordered[j].DueDate) {
			return ordered[i].DueDate.Before(ordered[j].DueDate)
		}
		return ordered[i].ID < ordered[j].ID
	})

	shares := make([]decimal.Decimal, len(ordered))
	remaining := amount
	for i := range ordered {
		if !remaining.IsPositive() {
			break
		}
		share := decimal.Min(remaining, ordered[i].Balance())
		shares[i] = share
		remaining = remaining.Sub(share)
	}
	if remaining.IsPositive() {
		last := len(ordered) - 1
		shares[last] = shares[last].Add(remaining)
	}

	allocations := make([]Allocation, 0, len(ordered))
	for i, r := range ordered {
		if shares[i].IsPositive() {
			allocations = append(allocations, Allocation{RecordID: r.ID, Amount: shares[i]})
		}
	}
	return allocations
}
