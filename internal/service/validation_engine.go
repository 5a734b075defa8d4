package service

import (
	"fmt"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/pkg/validator"
)

// ValidationEngine holds the structural checks for a proposed transformation.
// Each check returns a result so callers can accumulate every problem at once.
type ValidationEngine struct {
	calc *ConversionCalculator
}

func NewValidationEngine(calc *ConversionCalculator) (*ValidationEngine, error) {
	if err := calc.ready(); err != nil {
		return nil, err
	}
	return &ValidationEngine{calc: calc}, nil
}

// ValidateRequest checks the request shape (required ids, positive quantity).
func (v *ValidationEngine) ValidateRequest(req model.TransformationRequest) model.ValidationResult {
	result := model.NewValidationResult()
	for _, msg := range validator.Messages(req) {
		result.AddError(msg)
	}
	return *result
}

// ValidateProductMatch requires both items to be unit variants of the same base product.
func (v *ValidationEngine) ValidateProductMatch(source, target model.Item) model.ValidationResult {
	result := model.NewValidationResult()
	switch {
	case source.BaseProduct == "" || target.BaseProduct == "":
		result.AddError("both items must belong to a base product")
	case source.BaseProduct != target.BaseProduct:
		result.AddError(fmt.Sprintf("items belong to different base products (%s vs %s)", source.BaseProduct, target.BaseProduct))
	}
	if source.Code == target.Code {
		result.AddError("source and target item must be different")
	} else if source.Unit == target.Unit {
		result.AddWarning(fmt.Sprintf("source and target share the same unit %s", source.Unit))
	}
	return *result
}

// ValidateStockAvailability requires the source to hold at least qty.
func (v *ValidationEngine) ValidateStockAvailability(item model.Item, qty float64) model.ValidationResult {
	result := model.NewValidationResult()
	if item.Stock < qty {
		result.AddError(fmt.Sprintf("insufficient stock for %s: available %v %s, requested %v", item.Code, item.Stock, item.Unit, qty))
	} else if item.Stock == qty {
		result.AddWarning(fmt.Sprintf("transformation empties the stock of %s", item.Code))
	}
	return *result
}

// ValidateQuantityCalculation checks that qty converts to a finite, non-zero
// target quantity. Quantities are kept to 6 decimal places. A fractional
// target is allowed but flagged.
func (v *ValidationEngine) ValidateQuantityCalculation(qty, ratio float64) model.ValidationResult {
	result := model.NewValidationResult()
	if !isFinite(qty) || qty <= 0 {
		result.AddError(fmt.Sprintf("quantity must be a positive number, got %v", qty))
	} else if !onQuantityGrid(qty) {
		result.AddError(fmt.Sprintf("quantity %v has more than 6 decimal places", qty))
	}
	if !isFinite(ratio) || ratio <= 0 {
		result.AddError(fmt.Sprintf("conversion ratio must be a positive number, got %v", ratio))
	}
	if !result.IsValid {
		return *result
	}

	target, err := v.calc.CalculateTargetQuantity(qty, ratio)
	if err != nil {
		result.AddError(fmt.Sprintf("quantity calculation failed: %v", err))
		return *result
	}
	if target <= 0 {
		result.AddError(fmt.Sprintf("target quantity for %v x %v rounds to zero", qty, ratio))
		return *result
	}
	if !v.calc.ValidateWholeNumberResult(qty) {
		result.AddWarning(fmt.Sprintf("source quantity %v is not a whole number", qty))
	}
	if !v.calc.ValidateWholeNumberResult(target) {
		result.AddWarning(fmt.Sprintf("target quantity %v is not a whole number", target))
	}
	return *result
}
