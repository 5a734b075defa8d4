package repository

import (
	"context"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/storage"
)

type RatioRepository interface {
	FindAll(ctx context.Context) ([]model.ConversionRatio, error)
	SaveAll(ctx context.Context, ratios []model.ConversionRatio) error
}

type ratioRepo struct {
	store storage.Store
}

func NewRatioRepo(store storage.Store) RatioRepository {
	return &ratioRepo{store}
}

func (r *ratioRepo) FindAll(ctx context.Context) ([]model.ConversionRatio, error) {
	ratios := []model.ConversionRatio{}
	if err := loadJSON(ctx, r.store, storage.KeyConversionRatios, &ratios); err != nil {
		return nil, err
	}
	return ratios, nil
}

func (r *ratioRepo) SaveAll(ctx context.Context, ratios []model.ConversionRatio) error {
	if ratios == nil {
		ratios = []model.ConversionRatio{}
	}
	return saveJSON(ctx, r.store, storage.KeyConversionRatios, ratios)
}
