package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors (raised at construction)
	ErrConfiguration       = errors.New("configuration error")
	ErrColumnNotFound      = fmt.Errorf("%w: column not found", ErrConfiguration)
	ErrTypeMismatch        = fmt.Errorf("%w: declared type does not match values", ErrConfiguration)
	ErrInvalidIntervention = fmt.Errorf("%w: invalid intervention", ErrConfiguration)

	// Sampling errors
	ErrInterventionRequired = errors.New("intervention value required")
	ErrInsufficientData     = errors.New("insufficient data for sampling")
	ErrNotFitted            = errors.New("propensity model has not been fitted")

	// Model fit errors (raised during the disrupt stage)
	ErrModelFit          = errors.New("model fit error")
	ErrDegenerateDesign  = fmt.Errorf("%w: degenerate design", ErrModelFit)
	ErrNotConverged      = fmt.Errorf("%w: optimizer did not converge", ErrModelFit)
	ErrExtremePropensity = fmt.Errorf("%w: propensity score on the boundary", ErrModelFit)

	// Identification errors
	ErrUnidentifiableEffect = errors.New("causal effect is not identifiable")
)

// Error constructors with context
func NewColumnNotFoundError(role, column string) error {
	return fmt.Errorf("%w: %s column %q", ErrColumnNotFound, role, column)
}

func NewTypeMismatchError(column string, reason string) error {
	return fmt.Errorf("%w: column %q: %s", ErrTypeMismatch, column, reason)
}

func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, field, reason)
}

func NewInterventionError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidIntervention, reason)
}

func NewModelFitError(base error, reason string) error {
	if base == nil {
		base = ErrModelFit
	}
	return fmt.Errorf("%w: %s", base, reason)
}

func NewUnidentifiableError(treatments []string, missing []string) error {
	return fmt.Errorf("%w: backdoor set for %v requires unobserved %v", ErrUnidentifiableEffect, treatments, missing)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsModelFitError(err error) bool {
	return errors.Is(err, ErrModelFit)
}

func IsInterventionRequired(err error) bool {
	return errors.Is(err, ErrInterventionRequired)
}

func IsUnidentifiable(err error) bool {
	return errors.Is(err, ErrUnidentifiableEffect)
}
