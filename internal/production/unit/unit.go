package unit

// Unit identifies a measurement unit. The legacy data keys units by their
// Persian display string, so that string is the identifier.
type Unit string

// The closed unit set. Four continuous area units and two discrete
// counting units.
const (
	SquareMeter      Unit = "متر مربع"
	SquareDecimeter  Unit = "دسیمتر مربع"
	SquareCentimeter Unit = "سانتیمتر مربع"
	SquareFoot       Unit = "فوت مربع"
	Count            Unit = "عدد"
	Package          Unit = "بسته"
)

// areaRatios maps each continuous unit to the canonical intermediate
// (square metre). Converting through the intermediate keeps every unit pair
// consistent without a pairwise ratio table.
//
// The foot here is the 30.5 cm trade foot the legacy stock figures use,
// so 1 ft² = 930.25 cm².
var areaRatios = map[Unit]float64{
	SquareMeter:      1,
	SquareDecimeter:  0.01,
	SquareCentimeter: 0.0001,
	SquareFoot:       0.093025,
}

// IsDiscrete reports whether u is a counting unit.
func IsDiscrete(u Unit) bool {
	return u == Count || u == Package
}

// Known reports whether u belongs to the closed unit set.
func Known(u Unit) bool {
	if IsDiscrete(u) {
		return true
	}
	_, ok := areaRatios[u]
	return ok
}

// ConvertArea converts v between area units. Identity when from == to.
// Returns 0 when either unit is discrete and the units differ: cross-domain
// conversion is undefined, not an error, and callers must check for a zero
// result before trusting it. Unknown units likewise convert to 0.
func ConvertArea(v float64, from, to Unit) float64 {
	if from == to {
		return v
	}
	if IsDiscrete(from) || IsDiscrete(to) {
		return 0
	}

	rf, ok := areaRatios[from]
	if !ok {
		return 0
	}
	rt, ok := areaRatios[to]
	if !ok {
		return 0
	}

	return v * rf / rt
}
