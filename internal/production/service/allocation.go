package service

import (
	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// allocationScale is the number of decimal places an allocation is rounded
// down to before the remainder goes to the last requirement.
const allocationScale = 2

// Allocation is one requirement's share of a delivered total.
type Allocation struct {
	OrderID  string
	RowIndex int
	Quantity float64
	// PieceQuantities distributes Quantity over the requirement's piece
	// rows, keyed by piece index.
	PieceQuantities map[int]float64
}

// SplitAcrossRequirements distributes a delivered total over the
// requirements proportionally to their usage. Every allocation except the
// last is rounded down; the last absorbs the remainder, so the allocations
// always sum exactly to the input. Zero-weight requirements receive 0.
func SplitAcrossRequirements(total float64, reqs []repository.OrderRequirement) ([]Allocation, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	weights := make([]float64, len(reqs))
	for i, r := range reqs {
		weights[i] = r.TotalUsage
	}
	shares := splitProportional(total, weights)

	allocations := make([]Allocation, len(reqs))
	var sum decimal.Decimal
	for i, r := range reqs {
		allocations[i] = Allocation{
			OrderID:         r.OrderID,
			RowIndex:        r.RowIndex,
			Quantity:        shares[i],
			PieceQuantities: splitAcrossPieces(shares[i], r.PieceUsage),
		}
		sum = sum.Add(decimal.NewFromFloat(shares[i]))
	}

	if !sum.Equal(decimal.NewFromFloat(total)) {
		allocated, _ := sum.Float64()
		return nil, errors.AllocationConservation(total, allocated)
	}
	return allocations, nil
}

// splitAcrossPieces distributes a requirement's allocation over its piece
// rows pro-rata by piece usage, keyed by piece index.
func splitAcrossPieces(total float64, pieceUsage []float64) map[int]float64 {
	if len(pieceUsage) == 0 {
		return nil
	}
	shares := splitProportional(total, pieceUsage)
	out := make(map[int]float64, len(shares))
	for i, q := range shares {
		out[i] = q
	}
	return out
}

// splitProportional allocates total over the weights. Each share except the
// last is floored to allocationScale decimal places and the last share is
// the exact remainder, so the result conserves total. When every weight is
// zero the whole total lands on the last slot.
func splitProportional(total float64, weights []float64) []float64 {
	shares := make([]float64, len(weights))
	if len(weights) == 0 {
		return shares
	}

	totalDec := decimal.NewFromFloat(total)

	var weightSum decimal.Decimal
	for _, w := range weights {
		weightSum = weightSum.Add(decimal.NewFromFloat(w))
	}

	assigned := decimal.Zero
	for i := 0; i < len(weights)-1; i++ {
		if weightSum.IsZero() {
			continue
		}
		share := totalDec.
			Mul(decimal.NewFromFloat(weights[i])).
			Div(weightSum).
			RoundDown(allocationScale)
		shares[i], _ = share.Float64()
		assigned = assigned.Add(share)
	}

	last, _ := totalDec.Sub(assigned).Float64()
	shares[len(weights)-1] = last
	return shares
}
