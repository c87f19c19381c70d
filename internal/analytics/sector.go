package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-client/internal/model"
)

type sectorBucket struct {
	name  string
	value decimal.Decimal
	seen  int
}

// AggregateSectors groups holdings by sector label and computes each sector's
// market value and share of the portfolio.
//
// Labels are matched exactly (case-sensitive); an empty label is grouped under
// model.UnclassifiedSector. Slices are ordered by descending value, ties in first-seen
// order. Percentages are rounded to two decimals using largest-remainder
// apportionment so that they sum to exactly 100 whenever the portfolio has value.
func AggregateSectors(holdings []model.Holding) []model.SectorSlice {
	if len(holdings) == 0 {
		return []model.SectorSlice{}
	}

	index := make(map[string]int)
	var buckets []*sectorBucket
	total := decimal.Zero

	for _, h := range holdings {
		name := h.Sector
		if name == "" {
			name = model.UnclassifiedSector
		}
		value := figures(h).marketValue
		total = total.Add(value)

		i, ok := index[name]
		if !ok {
			i = len(buckets)
			index[name] = i
			buckets = append(buckets, &sectorBucket{name: name, value: decimal.Zero, seen: i})
		}
		buckets[i].value = buckets[i].value.Add(value)
	}

	sort.SliceStable(buckets, func(a, b int) bool {
		return buckets[a].value.GreaterThan(buckets[b].value)
	})

	values := make([]decimal.Decimal, len(buckets))
	for i, b := range buckets {
		values[i] = b.value
	}
	shares := apportionPercentages(values, total)

	slices := make([]model.SectorSlice, len(buckets))
	for i, b := range buckets {
		slices[i] = model.SectorSlice{
			Sector:     b.name,
			Value:      round(b.value),
			Percentage: shares[i],
			Color:      model.SectorColor(b.seen),
		}
	}
	return slices
}

// apportionPercentages splits 100.00 percent over values in hundredths of a
// percent. Each value first gets the floor of its exact share; the leftover
// hundredths go to the largest remainders, earlier entries first on ties.
// A non-positive total yields all zeros.
func apportionPercentages(values []decimal.Decimal, total decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	if !total.IsPositive() {
		return out
	}

	const units = 10000 // 100.00% in hundredths
	unitsDec := decimal.NewFromInt(units)

	type share struct {
		idx       int
		floor     int64
		remainder decimal.Decimal
	}

	shares := make([]share, len(values))
	var allocated int64
	for i, v := range values {
		exact := v.Mul(unitsDec).Div(total)
		floor := exact.Floor()
		shares[i] = share{idx: i, floor: floor.IntPart(), remainder: exact.Sub(floor)}
		allocated += shares[i].floor
	}

	byRemainder := make([]share, len(shares))
	copy(byRemainder, shares)
	sort.SliceStable(byRemainder, func(a, b int) bool {
		return byRemainder[a].remainder.GreaterThan(byRemainder[b].remainder)
	})

	for i := int64(0); i < units-allocated && int(i) < len(byRemainder); i++ {
		shares[byRemainder[i].idx].floor++
	}

	for i, s := range shares {
		out[i] = decimal.New(s.floor, -2).InexactFloat64()
	}
	return out
}
