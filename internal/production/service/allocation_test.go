package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartarleather/erp-backend/internal/production/repository"
)

func allocationSum(allocations []Allocation) float64 {
	var sum float64
	for _, a := range allocations {
		sum += a.Quantity
	}
	return sum
}

func TestSplitAcrossRequirementsProportional(t *testing.T) {
	reqs := []repository.OrderRequirement{
		{OrderID: "a", TotalUsage: 30},
		{OrderID: "b", TotalUsage: 70},
	}

	allocations, err := SplitAcrossRequirements(9, reqs)
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	assert.Equal(t, 2.7, allocations[0].Quantity)
	assert.Equal(t, 6.3, allocations[1].Quantity)
	assert.Equal(t, 9.0, allocationSum(allocations))
}

func TestSplitAcrossRequirementsRemainderToLast(t *testing.T) {
	reqs := []repository.OrderRequirement{
		{OrderID: "a", TotalUsage: 1},
		{OrderID: "b", TotalUsage: 1},
		{OrderID: "c", TotalUsage: 1},
	}

	allocations, err := SplitAcrossRequirements(10, reqs)
	require.NoError(t, err)

	assert.Equal(t, 3.33, allocations[0].Quantity)
	assert.Equal(t, 3.33, allocations[1].Quantity)
	assert.Equal(t, 3.34, allocations[2].Quantity)
	assert.Equal(t, 10.0, allocationSum(allocations))
}

func TestSplitAcrossRequirementsZeroWeight(t *testing.T) {
	reqs := []repository.OrderRequirement{
		{OrderID: "a", TotalUsage: 0},
		{OrderID: "b", TotalUsage: 5},
	}

	allocations, err := SplitAcrossRequirements(5, reqs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, allocations[0].Quantity)
	assert.Equal(t, 5.0, allocations[1].Quantity)
}

func TestSplitAcrossRequirementsAllZeroWeights(t *testing.T) {
	reqs := []repository.OrderRequirement{
		{OrderID: "a", TotalUsage: 0},
		{OrderID: "b", TotalUsage: 0},
	}

	allocations, err := SplitAcrossRequirements(7, reqs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, allocations[0].Quantity)
	assert.Equal(t, 7.0, allocations[1].Quantity, "conservation still holds with no weights")
}

func TestSplitAcrossRequirementsConservation(t *testing.T) {
	cases := []struct {
		name    string
		total   float64
		weights []float64
	}{
		{"uneven thirds", 100, []float64{1, 1, 1}},
		{"tiny weights", 0.07, []float64{0.003, 0.001, 0.002}},
		{"many requirements", 250.5, []float64{13, 7, 42, 1, 99, 3.5}},
		{"single requirement", 12.34, []float64{8}},
		{"zero total", 0, []float64{3, 4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reqs := make([]repository.OrderRequirement, len(tc.weights))
			for i, w := range tc.weights {
				reqs[i] = repository.OrderRequirement{OrderID: "o", RowIndex: i, TotalUsage: w}
			}

			allocations, err := SplitAcrossRequirements(tc.total, reqs)
			require.NoError(t, err)
			assert.InDelta(t, tc.total, allocationSum(allocations), 1e-12)
		})
	}
}

func TestSplitAcrossRequirementsEmpty(t *testing.T) {
	allocations, err := SplitAcrossRequirements(10, nil)
	require.NoError(t, err)
	assert.Nil(t, allocations)
}

func TestSplitDistributesAcrossPieces(t *testing.T) {
	reqs := []repository.OrderRequirement{
		{OrderID: "a", RowIndex: 0, PieceUsage: []float64{2, 6}, TotalUsage: 8},
	}

	allocations, err := SplitAcrossRequirements(8, reqs)
	require.NoError(t, err)
	require.Len(t, allocations, 1)

	pieces := allocations[0].PieceQuantities
	require.Len(t, pieces, 2)
	assert.Equal(t, 2.0, pieces[0])
	assert.Equal(t, 6.0, pieces[1])

	var sum float64
	for _, q := range pieces {
		sum += q
	}
	assert.Equal(t, allocations[0].Quantity, sum, "piece distribution conserves the row allocation")
}
