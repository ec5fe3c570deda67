// Package dto はYahoo Finance quoteSummary APIのレスポンス構造を定義します。
package dto

// QuoteSummaryResponse は /v10/finance/quoteSummary/{symbol} のレスポンスです。
type QuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []QuoteSummaryResult `json:"result"`
		Error  *ProviderError       `json:"error"`
	} `json:"quoteSummary"`
}

// QuoteSummaryResult は要求したモジュールごとのデータを保持します。
type QuoteSummaryResult struct {
	SummaryDetail        *SummaryDetail        `json:"summaryDetail"`
	DefaultKeyStatistics *DefaultKeyStatistics `json:"defaultKeyStatistics"`
}

// SummaryDetail is the summaryDetail module.
type SummaryDetail struct {
	PreviousClose        *RawValue `json:"previousClose"`
	FiftyDayAverage      *RawValue `json:"fiftyDayAverage"`
	TwoHundredDayAverage *RawValue `json:"twoHundredDayAverage"`
	ForwardPE            *RawValue `json:"forwardPE"`
	DividendYield        *RawValue `json:"dividendYield"` // fraction, e.g. 0.0057
}

// DefaultKeyStatistics is the defaultKeyStatistics module.
type DefaultKeyStatistics struct {
	ForwardEps *RawValue `json:"forwardEps"`
	ForwardPE  *RawValue `json:"forwardPE"`
}

// RawValue は {"raw": 1.23, "fmt": "1.23"} 形式の数値です。
// 値が無い場合、Yahooは {} を返すため Raw は nil になります。
type RawValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt,omitempty"`
}

// ProviderError はAPIが返すエラーオブジェクトです。
type ProviderError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
