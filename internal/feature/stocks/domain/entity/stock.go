// Package entity defines the domain models for the stocks feature.
package entity

// Stock は登録された銘柄と、外部APIから取得した指標を表します。
// 指標フィールドはエンリッチメントが成功するまで nil のままです。
// nil（未取得）と 0（取得済みの値）は区別されます。
type Stock struct {
	ID            uint     // Store-assigned identifier
	Symbol        string   // Ticker symbol as registered (e.g., "AAPL")
	Price         *float64 // Previous close
	MA50          *float64 // 50-day moving average
	MA200         *float64 // 200-day moving average
	ForwardPE     *float64 // Forward price/earnings ratio
	ForwardEPS    *float64 // Forward earnings per share
	DividendYield *float64 // Dividend yield in percent (e.g., 2.1 for 2.1%)
}

// Enriched は指標フィールドのいずれかが設定済みかどうかを返します。
func (s Stock) Enriched() bool {
	return s.Price != nil || s.MA50 != nil || s.MA200 != nil ||
		s.ForwardPE != nil || s.ForwardEPS != nil || s.DividendYield != nil
}

// Float returns a pointer to v. Handy for building stocks and snapshots in code.
func Float(v float64) *float64 {
	return &v
}
