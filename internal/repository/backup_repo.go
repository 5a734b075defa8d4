package repository

import (
	"context"
	"errors"
	"fmt"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/storage"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrNoBackup = errors.New("no stock backup stored")

// BackupRepository keeps the latest stock backup, msgpack encoded, under storage.KeyStockBackup.
type BackupRepository interface {
	Save(ctx context.Context, backup model.StockBackup) error
	Latest(ctx context.Context) (*model.StockBackup, error)
}

type backupRepo struct {
	store storage.Store
}

func NewBackupRepo(store storage.Store) BackupRepository {
	return &backupRepo{store}
}

func (r *backupRepo) Save(ctx context.Context, backup model.StockBackup) error {
	raw, err := msgpack.Marshal(&backup)
	if err != nil {
		return fmt.Errorf("encode stock backup: %w", err)
	}
	return r.store.Set(ctx, storage.KeyStockBackup, raw)
}

func (r *backupRepo) Latest(ctx context.Context) (*model.StockBackup, error) {
	raw, err := r.store.Get(ctx, storage.KeyStockBackup)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrNoBackup
	}
	if err != nil {
		return nil, err
	}
	var backup model.StockBackup
	if err := msgpack.Unmarshal(raw, &backup); err != nil {
		return nil, fmt.Errorf("decode stock backup: %w", err)
	}
	return &backup, nil
}
