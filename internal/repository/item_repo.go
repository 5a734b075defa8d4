package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/storage"
)

// ItemRepository reads and writes the whole item collection stored under
// storage.KeyItems. The collection is the source of truth for stock.
type ItemRepository interface {
	FindAll(ctx context.Context) ([]model.Item, error)
	SaveAll(ctx context.Context, items []model.Item) error
}

type itemRepo struct {
	store storage.Store
}

func NewItemRepo(store storage.Store) ItemRepository {
	return &itemRepo{store}
}

func (r *itemRepo) FindAll(ctx context.Context) ([]model.Item, error) {
	items := []model.Item{}
	if err := loadJSON(ctx, r.store, storage.KeyItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) SaveAll(ctx context.Context, items []model.Item) error {
	if items == nil {
		items = []model.Item{}
	}
	return saveJSON(ctx, r.store, storage.KeyItems, items)
}

// loadJSON leaves dst untouched when the key has never been written.
func loadJSON(ctx context.Context, store storage.Store, key string, dst any) error {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func saveJSON(ctx context.Context, store storage.Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
