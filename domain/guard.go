package domain

import (
	"reflect"
	"strings"
	"unicode/utf8"
)

// Number covers the numeric kinds the guards accept.
type Number interface {
	~int | ~int32 | ~int64 | ~float64
}

// NotEmpty fails when value is blank after trimming.
func NotEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return Invalid(field, "%s is required", field)
	}
	return nil
}

// NotNil fails for nil interfaces and typed nil pointers, maps, slices.
func NotNil(field string, value any) error {
	if value == nil {
		return Invalid(field, "%s is required", field)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return Invalid(field, "%s is required", field)
		}
	}
	return nil
}

func NonNegative[T Number](field string, value T) error {
	if value < 0 {
		return Invalid(field, "%s must not be negative", field)
	}
	return nil
}

func Positive[T Number](field string, value T) error {
	if value <= 0 {
		return Invalid(field, "%s must be greater than zero", field)
	}
	return nil
}

// InRange checks min <= value <= max.
func InRange[T Number](field string, value, min, max T) error {
	if value < min || value > max {
		return Invalid(field, "%s must be between %v and %v", field, min, max)
	}
	return nil
}

// MaxLength counts runes, not bytes.
func MaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return Invalid(field, "%s must be at most %d characters", field, max)
	}
	return nil
}

// DefaultIfEmpty returns fallback when value is blank.
func DefaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// FirstError returns the first non-nil error, so guard chains stop at the first failure.
func FirstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
