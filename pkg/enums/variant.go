package enums

import (
	"fmt"
	"strings"
)

// VariantType distinguishes the dimensions a product can vary along.
type VariantType string

const (
	VariantTypeColor VariantType = "color"
	VariantTypeSize  VariantType = "size"
)

var validVariantTypes = []VariantType{
	VariantTypeColor,
	VariantTypeSize,
}

// String implements fmt.Stringer.
func (v VariantType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VariantType.
func (v VariantType) IsValid() bool {
	for _, candidate := range validVariantTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVariantType converts raw input into a VariantType.
func ParseVariantType(value string) (VariantType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validVariantTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid variant type %q", value)
}
