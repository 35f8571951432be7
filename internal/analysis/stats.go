package analysis

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Summary holds the statistics of one measure within one group.
// Statistics over no values are null; StdDev is null below two values.
type Summary struct {
	Count  int                 `json:"count"`
	Avg    decimal.NullDecimal `json:"avg"`
	StdDev decimal.NullDecimal `json:"stddev"`
	Sum    decimal.NullDecimal `json:"sum"`
	Median decimal.NullDecimal `json:"median"`
}

// Stat returns the value of st.
func (s Summary) Stat(st Stat) decimal.NullDecimal {
	switch st {
	case Count:
		return whole(s.Count)
	case Avg:
		return s.Avg
	case StdDev:
		return s.StdDev
	case Sum:
		return s.Sum
	case Median:
		return s.Median
	}
	return decimal.NullDecimal{}
}

var two = decimal.NewFromInt(2)

// Summarize computes count, mean, sample standard deviation, sum and
// exact median of values. values is sorted in place.
func Summarize(values []decimal.Decimal) Summary {
	n := len(values)
	s := Summary{Count: n}
	if n == 0 {
		return s
	}

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	mean := sum.Div(decimal.NewFromInt(int64(n)))
	s.Sum = valid(sum)
	s.Avg = valid(mean)
	s.Median = valid(median(values))

	if n > 1 {
		sq := decimal.Zero
		for _, v := range values {
			d := v.Sub(mean)
			sq = sq.Add(d.Mul(d))
		}
		variance := sq.Div(decimal.NewFromInt(int64(n - 1)))
		s.StdDev = valid(decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64())))
	}
	return s
}

func median(values []decimal.Decimal) decimal.Decimal {
	sort.Slice(values, func(i, j int) bool { return values[i].LessThan(values[j]) })
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return values[mid-1].Add(values[mid]).Div(two)
}
