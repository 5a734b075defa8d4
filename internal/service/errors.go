package service

import (
	"errors"
	"strings"
)

var (
	ErrNotInitialized     = errors.New("component not initialized")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrItemNotFound       = errors.New("item not found")
	ErrRatioNotFound      = errors.New("conversion ratio not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidCalculation = errors.New("invalid calculation result")
	ErrValidationFailed   = errors.New("transformation validation failed")
)

// ValidationError carries the accumulated validation messages of a rejected transformation.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
