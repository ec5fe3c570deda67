// Package domain defines domain-level errors for the stocks feature.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStockNotFound indicates that no stock row exists for the given id.
	ErrStockNotFound = errors.New("stock not found")

	// ErrEmptySymbol is returned when a stock is created without a ticker symbol.
	ErrEmptySymbol = errors.New("symbol is required")

	// ErrSymbolUnknown indicates that the market data provider does not know the symbol.
	ErrSymbolUnknown = errors.New("unknown symbol")

	// ErrMalformedResponse indicates that the provider answered with data that could not be used.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// FetchError はマーケットデータ取得の失敗を表します。
// 通信エラー・未知の銘柄・不正なレスポンスはすべてこの型に包まれます。
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError はストアへの書き込み・読み出しの失敗を表します。
type PersistenceError struct {
	Op  string // e.g. "insert", "update"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("stock store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
