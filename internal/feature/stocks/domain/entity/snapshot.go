package entity

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Snapshot is the set of market metrics returned by the data provider for one
// symbol at one point in time. Any field may be missing upstream; missing
// fields stay nil.
type Snapshot struct {
	PreviousClose        *float64
	FiftyDayAverage      *float64
	TwoHundredDayAverage *float64
	ForwardPE            *float64
	ForwardEPS           *float64
	DividendYield        *float64 // Fraction as reported upstream (0.021 = 2.1%)
}

// ApplyTo はスナップショットの値を銘柄に反映した新しい Stock を返します。
// スナップショットに存在しない項目は元の値を保持します。
// 配当利回りは百分率（×100）に変換して保存します。
func (s Snapshot) ApplyTo(stock Stock) Stock {
	out := stock
	if s.PreviousClose != nil {
		out.Price = Float(*s.PreviousClose)
	}
	if s.FiftyDayAverage != nil {
		out.MA50 = Float(*s.FiftyDayAverage)
	}
	if s.TwoHundredDayAverage != nil {
		out.MA200 = Float(*s.TwoHundredDayAverage)
	}
	if s.ForwardPE != nil {
		out.ForwardPE = Float(*s.ForwardPE)
	}
	if s.ForwardEPS != nil {
		out.ForwardEPS = Float(*s.ForwardEPS)
	}
	if s.DividendYield != nil {
		out.DividendYield = Float(percent(*s.DividendYield))
	}
	return out
}

// percent scales a fraction to a percentage in decimal arithmetic so that
// values like 0.0057 become 0.57 rather than 0.5700000000000001.
func percent(fraction float64) float64 {
	v, _ := decimal.NewFromFloat(fraction).Mul(hundred).Float64()
	return v
}
