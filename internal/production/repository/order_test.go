package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPieceRecalculate(t *testing.T) {
	p := Piece{Length: 0.5, Width: 0.4, Quantity: 3, WasteRate: 10, UnitPrice: 200}
	p.Recalculate()

	assert.InDelta(t, 0.22, p.FinalUsage, 1e-9)
	assert.InDelta(t, 0.66, p.TotalUsage, 1e-9)
	assert.InDelta(t, 132, p.TotalCost, 1e-9)
}

func TestPieceRecalculateOverwritesStaleFigures(t *testing.T) {
	p := Piece{Length: 1, Width: 1, Quantity: 1, FinalUsage: 99, TotalUsage: 99, TotalCost: 99}
	p.Recalculate()

	assert.Equal(t, 1.0, p.FinalUsage)
	assert.Equal(t, 1.0, p.TotalUsage)
	assert.Equal(t, 0.0, p.TotalCost)
}

func TestDeliveryRowRecalculate(t *testing.T) {
	d := DeliveryRow{Length: 0.5, Width: 0.2, Quantity: 4}

	d.Recalculate(false)
	assert.InDelta(t, 0.4, d.DeliveredQty, 1e-9)

	// Discrete products are counted, not measured.
	d.Recalculate(true)
	assert.Equal(t, 4.0, d.DeliveredQty)
}

func TestDeliveryRowRecalculateKeepsRecordedQty(t *testing.T) {
	// Rows appended when production starts carry only the delivered figure.
	d := DeliveryRow{Name: "چرم طبیعی", DeliveredQty: 3}

	d.Recalculate(false)
	assert.Equal(t, 3.0, d.DeliveredQty)

	d.Recalculate(true)
	assert.Equal(t, 3.0, d.DeliveredQty)
}

func TestGridGroupRecalculate(t *testing.T) {
	g := GridGroup{
		Category: "رویه",
		Pieces: []Piece{
			{Length: 0.5, Width: 0.4, Quantity: 2, UnitPrice: 100},
			{Length: 0.3, Width: 0.3, Quantity: 1, WasteRate: 100, UnitPrice: 50},
		},
		Deliveries: []DeliveryRow{
			{Length: 0.5, Width: 0.4, Quantity: 1},
			{Length: 0.3, Width: 1, Quantity: 2},
		},
	}
	g.Recalculate(false)

	// 0.5*0.4*2 = 0.4 and 0.3*0.3*2 = 0.18
	assert.InDelta(t, 0.58, g.TotalUsage, 1e-9)
	assert.InDelta(t, 49, g.TotalCost, 1e-9)
	// 0.2 + 0.6
	assert.InDelta(t, 0.8, g.TotalDelivered, 1e-9)
}

func TestGridGroupRecalculateKeepsRecordedDeliveries(t *testing.T) {
	g := GridGroup{
		Category: "رویه",
		Deliveries: []DeliveryRow{
			{Length: 0.5, Width: 0.4, Quantity: 1},
			{Name: "چرم طبیعی", DeliveredQty: 3},
		},
	}
	g.Recalculate(false)

	assert.Equal(t, 3.0, g.Deliveries[1].DeliveredQty)
	assert.InDelta(t, 3.2, g.TotalDelivered, 1e-9)
}

func TestGridGroupRecalculateEmpty(t *testing.T) {
	g := GridGroup{TotalUsage: 5, TotalDelivered: 5, TotalCost: 5}
	g.Recalculate(false)

	assert.Equal(t, 0.0, g.TotalUsage)
	assert.Equal(t, 0.0, g.TotalDelivered)
	assert.Equal(t, 0.0, g.TotalCost)
}

func TestGridGroupsValueNilWritesEmptyArray(t *testing.T) {
	var g GridGroups
	v, err := g.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

func TestGridGroupsRoundTrip(t *testing.T) {
	in := GridGroups{{
		Category:          "آستر",
		SelectedProductID: "p1",
		Pieces:            []Piece{{Length: 1, Width: 2, Quantity: 3}},
	}}
	v, err := in.Value()
	require.NoError(t, err)

	var out GridGroups
	require.NoError(t, out.Scan(v))
	require.Len(t, out, 1)
	assert.Equal(t, "آستر", out[0].Category)
	assert.Equal(t, "p1", out[0].SelectedProductID)
	require.Len(t, out[0].Pieces, 1)
	assert.Equal(t, 3.0, out[0].Pieces[0].Quantity)
}

func TestGridGroupsScanNil(t *testing.T) {
	g := GridGroups{{Category: "stale"}}
	require.NoError(t, g.Scan(nil))
	assert.Nil(t, g)
}

func TestGridGroupsScanRejectsNonBytes(t *testing.T) {
	var g GridGroups
	assert.Error(t, g.Scan("not bytes"))
}

func TestGridGroupJSONOmitsEmptyRouting(t *testing.T) {
	b, err := json.Marshal(GridGroup{Category: "رویه"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "source_shelf_id")
	assert.NotContains(t, string(b), "target_stage_task_id")
}
