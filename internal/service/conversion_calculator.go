package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"
	"go-inventory-uom/pkg/validator"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	quantityPlaces     = 6
	wholeNumberEpsilon = 1e-6
)

// ConversionCalculator does the unit arithmetic and owns the ratio table.
// Build it with NewConversionCalculator; a zero value reports ErrNotInitialized.
type ConversionCalculator struct {
	repo   repository.RatioRepository
	logger *zap.Logger

	mu     sync.RWMutex
	ratios []model.ConversionRatio
	index  map[string]int
}

// NewConversionCalculator loads the ratio table once and returns a ready calculator.
func NewConversionCalculator(ctx context.Context, repo repository.RatioRepository, logger *zap.Logger) (*ConversionCalculator, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: ratio repository is required", ErrInvalidArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ConversionCalculator{repo: repo, logger: logger}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ConversionCalculator) ready() error {
	if c == nil || c.repo == nil {
		return ErrNotInitialized
	}
	return nil
}

// Reload re-reads the ratio table from storage.
func (c *ConversionCalculator) Reload(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	ratios, err := c.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load conversion ratios: %w", err)
	}

	index := make(map[string]int, len(ratios))
	for i, r := range ratios {
		index[r.BaseProduct] = i
	}

	c.mu.Lock()
	c.ratios = ratios
	c.index = index
	c.mu.Unlock()

	c.logger.Debug("conversion ratios loaded", zap.Int("base_products", len(ratios)))
	return nil
}

// CalculateTargetQuantity returns sourceQty * ratio rounded to 6 decimals.
// A zero source quantity is allowed.
func (c *ConversionCalculator) CalculateTargetQuantity(sourceQty, ratio float64) (float64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	if !isFinite(sourceQty) || sourceQty < 0 {
		return 0, fmt.Errorf("%w: source quantity must be a finite number >= 0, got %v", ErrInvalidArgument, sourceQty)
	}
	if !isFinite(ratio) || ratio <= 0 {
		return 0, fmt.Errorf("%w: ratio must be a finite number > 0, got %v", ErrInvalidArgument, ratio)
	}
	return roundResult(sourceQty * ratio)
}

// CalculateSourceQuantity is the inverse, targetQty / ratio. Unlike the forward
// direction it rejects a zero quantity.
func (c *ConversionCalculator) CalculateSourceQuantity(targetQty, ratio float64) (float64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	if !isFinite(targetQty) || targetQty <= 0 {
		return 0, fmt.Errorf("%w: target quantity must be a finite number > 0, got %v", ErrInvalidArgument, targetQty)
	}
	if !isFinite(ratio) || ratio <= 0 {
		return 0, fmt.Errorf("%w: ratio must be a finite number > 0, got %v", ErrInvalidArgument, ratio)
	}
	return roundResult(targetQty / ratio)
}

// GetConversionRatio looks up the exact from -> to direction. The inverse is never derived.
func (c *ConversionCalculator) GetConversionRatio(fromUnit, toUnit, baseProduct string) (float64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	ratio, ok := c.GetRatiosForProduct(baseProduct)
	if !ok {
		return 0, fmt.Errorf("%w: no ratios for base product %s", ErrRatioNotFound, baseProduct)
	}
	conv, ok := ratio.Find(fromUnit, toUnit)
	if !ok {
		return 0, fmt.Errorf("%w: %s -> %s for base product %s", ErrRatioNotFound, fromUnit, toUnit, baseProduct)
	}
	return conv.Ratio, nil
}

// ValidateWholeNumberResult reports whether qty is within 1e-6 of an integer.
func (c *ConversionCalculator) ValidateWholeNumberResult(qty float64) bool {
	return isFinite(qty) && math.Abs(qty-math.Round(qty)) < wholeNumberEpsilon
}

// GetRatiosForProduct returns a copy of the ratio entry for baseProduct.
func (c *ConversionCalculator) GetRatiosForProduct(baseProduct string) (model.ConversionRatio, bool) {
	if c.ready() != nil {
		return model.ConversionRatio{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[baseProduct]
	if !ok {
		return model.ConversionRatio{}, false
	}
	return cloneRatio(c.ratios[i]), true
}

// GetAllRatios returns the table in stored order.
func (c *ConversionCalculator) GetAllRatios() ([]model.ConversionRatio, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ConversionRatio, 0, len(c.ratios))
	for _, r := range c.ratios {
		out = append(out, cloneRatio(r))
	}
	return out, nil
}

// SaveConversionRatios validates, persists and reloads the whole table.
func (c *ConversionCalculator) SaveConversionRatios(ctx context.Context, ratios []model.ConversionRatio) error {
	if err := c.ready(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(ratios))
	for i := range ratios {
		if msgs := validator.Messages(ratios[i]); len(msgs) > 0 {
			return fmt.Errorf("%w: ratio %d: %s", ErrInvalidArgument, i, strings.Join(msgs, "; "))
		}
		if seen[ratios[i].BaseProduct] {
			return fmt.Errorf("%w: duplicate base product %s", ErrInvalidArgument, ratios[i].BaseProduct)
		}
		seen[ratios[i].BaseProduct] = true
	}

	if err := c.repo.SaveAll(ctx, ratios); err != nil {
		return fmt.Errorf("save conversion ratios: %w", err)
	}
	c.logger.Info("conversion ratios saved", zap.Int("base_products", len(ratios)))
	return c.Reload(ctx)
}

func cloneRatio(r model.ConversionRatio) model.ConversionRatio {
	r.Conversions = append([]model.Conversion(nil), r.Conversions...)
	return r
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func roundResult(v float64) (float64, error) {
	if !isFinite(v) {
		return 0, ErrInvalidCalculation
	}
	return roundQuantity(v), nil
}

// roundQuantity trims floating point noise, e.g. 0.1*3 -> 0.3.
func roundQuantity(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(quantityPlaces).Float64()
	return f
}

// onQuantityGrid reports whether v has at most 6 decimal places.
func onQuantityGrid(v float64) bool {
	return isFinite(v) && roundQuantity(v) == v
}

// applyDelta adds delta to stock in decimal so the change is exact.
func applyDelta(stock, delta float64) (float64, error) {
	prev, change := decimal.NewFromFloat(stock), decimal.NewFromFloat(delta)
	next, _ := prev.Add(change).Float64()
	if !decimal.NewFromFloat(next).Sub(prev).Equal(change) {
		return 0, fmt.Errorf("%w: %v %+v does not apply exactly", ErrInvalidCalculation, stock, delta)
	}
	return next, nil
}

// deltaMatches reports whether to-from equals qty exactly in decimal.
func deltaMatches(from, to, qty float64) bool {
	return decimal.NewFromFloat(to).Sub(decimal.NewFromFloat(from)).Equal(decimal.NewFromFloat(qty))
}
