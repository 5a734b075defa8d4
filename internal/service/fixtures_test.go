package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"
	"go-inventory-uom/internal/storage"
)

var errAuditDown = errors.New("audit store unavailable")

// memoryAudit keeps records in insertion order and can be told to fail.
type memoryAudit struct {
	mu      sync.Mutex
	records []model.TransformationRecord
	failOn  func(model.TransformationRecord) bool
}

func (a *memoryAudit) LogTransformation(_ context.Context, record model.TransformationRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failOn != nil && a.failOn(record) {
		return errAuditDown
	}
	for i := range a.records {
		if a.records[i].ID == record.ID {
			a.records[i] = record
			return nil
		}
	}
	a.records = append(a.records, record)
	return nil
}

func (a *memoryAudit) GetTransformationHistory(_ context.Context, filter model.HistoryFilter) ([]model.TransformationRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []model.TransformationRecord{}
	for i := len(a.records) - 1; i >= 0; i-- {
		r := a.records[i]
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.ItemID != "" && r.SourceItem.ID != filter.ItemID && r.TargetItem.ID != filter.ItemID {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (a *memoryAudit) GetTransformationByID(_ context.Context, id string) (*model.TransformationRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func aquaItems() []model.Item {
	return []model.Item{
		{Code: "AQUA-DUS", Name: "Aqua 1L Dus", Unit: "dus", Stock: 10, BaseProduct: "AQUA-1L"},
		{Code: "AQUA-PCS", Name: "Aqua 1L Pcs", Unit: "pcs", Stock: 50, BaseProduct: "AQUA-1L"},
		{Code: "TEH-PCS", Name: "Teh Botol Pcs", Unit: "pcs", Stock: 30, BaseProduct: "TEH-BOTOL"},
		{Code: "GULA-KG", Name: "Gula Pasir 1kg", Unit: "kg", Stock: 7},
	}
}

func aquaRatios() []model.ConversionRatio {
	return []model.ConversionRatio{
		{BaseProduct: "AQUA-1L", Conversions: []model.Conversion{{From: "dus", To: "pcs", Ratio: 12}}},
		{BaseProduct: "TEH-BOTOL", Conversions: []model.Conversion{{From: "dus", To: "pcs", Ratio: 24}}},
	}
}

type fixture struct {
	items repository.ItemRepository
	calc  *ConversionCalculator
	stock *StockManager
	audit *memoryAudit
	mgr   *TransformationManager
}

func newFixture(t *testing.T, opts StockManagerOptions) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	items := repository.NewItemRepo(store)
	if err := items.SaveAll(ctx, aquaItems()); err != nil {
		t.Fatalf("seed items: %v", err)
	}
	ratios := repository.NewRatioRepo(store)
	if err := ratios.SaveAll(ctx, aquaRatios()); err != nil {
		t.Fatalf("seed ratios: %v", err)
	}

	calc, err := NewConversionCalculator(ctx, ratios, nil)
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	stock, err := NewStockManager(items, opts)
	if err != nil {
		t.Fatalf("stock manager: %v", err)
	}
	audit := &memoryAudit{}
	mgr, err := NewTransformationManager(TransformationManagerDeps{
		Calculator: calc,
		Stock:      stock,
		Audit:      audit,
	})
	if err != nil {
		t.Fatalf("transformation manager: %v", err)
	}
	return &fixture{items: items, calc: calc, stock: stock, audit: audit, mgr: mgr}
}

func (f *fixture) balance(t *testing.T, code string) float64 {
	t.Helper()
	f.stock.InvalidateCache()
	stock, err := f.stock.GetStockBalance(context.Background(), code)
	if err != nil {
		t.Fatalf("balance %s: %v", code, err)
	}
	return stock
}
