// Package storage defines the flat key-value store the stock ledger is persisted in.
package storage

import (
	"context"
	"errors"
)

// Keys shared with the import pipeline and the rest of the back office.
const (
	KeyItems            = "masterBarang"
	KeyConversionRatios = "conversionRatios"
	KeyStockBackup      = "stockBackup"
)

var ErrKeyNotFound = errors.New("storage key not found")

// Store is a string keyed blob store with get/set/remove semantics.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
