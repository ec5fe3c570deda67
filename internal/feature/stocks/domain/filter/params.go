package filter

// Params holds the optional listing filters.
//
// ForwardPE and DividendYield are thresholds. MA50 and MA200 are flags: when
// set, the listing keeps stocks trading above the respective moving average.
type Params struct {
	ForwardPE     *float64
	DividendYield *float64
	MA50          bool
	MA200         bool
}

// Build はパラメータから Predicate を組み立てます。
// 複数指定された場合は AND で結合され、何も指定されなければ全件に一致します。
func Build(p Params) Predicate {
	var pred Predicate
	if p.ForwardPE != nil {
		pred = pred.And(Less(FieldForwardPE, *p.ForwardPE))
	}
	if p.DividendYield != nil {
		pred = pred.And(Greater(FieldDividendYield, *p.DividendYield))
	}
	if p.MA50 {
		pred = pred.And(GreaterThanField(FieldPrice, FieldMA50))
	}
	if p.MA200 {
		pred = pred.And(GreaterThanField(FieldPrice, FieldMA200))
	}
	return pred
}
