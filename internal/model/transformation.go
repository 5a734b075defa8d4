package model

import "time"

type TransformationStatus string

const (
	StatusPending   TransformationStatus = "pending"
	StatusCompleted TransformationStatus = "completed"
	StatusFailed    TransformationStatus = "failed"
)

// TransformationRequest is what a caller submits to move stock between two unit variants.
type TransformationRequest struct {
	SourceItemID string  `json:"sourceItemId" validate:"required"`
	TargetItemID string  `json:"targetItemId" validate:"required,nefield=SourceItemID"`
	Quantity     float64 `json:"quantity" validate:"finite,gt=0"`
	User         string  `json:"user"`
}

// ItemSnapshot captures one side of a transformation.
type ItemSnapshot struct {
	ID          string  `json:"id" bson:"id"`
	Name        string  `json:"name" bson:"name"`
	Unit        string  `json:"unit" bson:"unit"`
	Quantity    float64 `json:"quantity" bson:"quantity"`
	StockBefore float64 `json:"stockBefore" bson:"stockBefore"`
	StockAfter  float64 `json:"stockAfter" bson:"stockAfter"`
	BaseProduct string  `json:"baseProduct" bson:"baseProduct"`
}

type TransformationRecord struct {
	ID              string               `json:"id" bson:"_id"`
	Timestamp       time.Time            `json:"timestamp" bson:"timestamp"`
	User            string               `json:"user" bson:"user"`
	SourceItem      ItemSnapshot         `json:"sourceItem" bson:"sourceItem"`
	TargetItem      ItemSnapshot         `json:"targetItem" bson:"targetItem"`
	ConversionRatio float64              `json:"conversionRatio" bson:"conversionRatio"`
	Status          TransformationStatus `json:"status" bson:"status"`
	Error           string               `json:"error,omitempty" bson:"error,omitempty"`
}

// ValidationResult accumulates every failing check instead of stopping at the first.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func NewValidationResult() *ValidationResult {
	return &ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}
}

func (v *ValidationResult) AddError(msg string) {
	v.Errors = append(v.Errors, msg)
	v.IsValid = false
}

func (v *ValidationResult) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// Merge folds another result into v.
func (v *ValidationResult) Merge(other ValidationResult) {
	for _, e := range other.Errors {
		v.AddError(e)
	}
	v.Warnings = append(v.Warnings, other.Warnings...)
}

type PreviewSide struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Unit           string  `json:"unit"`
	CurrentStock   float64 `json:"currentStock"`
	Quantity       float64 `json:"quantity"`
	ResultingStock float64 `json:"resultingStock"`
}

type TransformationPreview struct {
	SourceItem      PreviewSide      `json:"sourceItem"`
	TargetItem      PreviewSide      `json:"targetItem"`
	ConversionRatio float64          `json:"conversionRatio"`
	Formula         string           `json:"formula,omitempty"`
	Validation      ValidationResult `json:"validation"`
}

type TransformableGroup struct {
	BaseProduct string `json:"baseProduct"`
	Items       []Item `json:"items"`
}

type OptionSide struct {
	Unit  string  `json:"unit"`
	Item  Item    `json:"item"`
	Stock float64 `json:"stock"`
}

type ConversionOption struct {
	From      OptionSide `json:"from"`
	To        OptionSide `json:"to"`
	Ratio     float64    `json:"ratio"`
	Available bool       `json:"available"`
}

// HistoryFilter narrows transformation history; zero values match everything.
type HistoryFilter struct {
	ItemID string
	Status TransformationStatus
	Limit  int
}
