package enums

import (
	"fmt"
	"strings"
)

// InventoryOperation selects how an admin stock update is applied.
type InventoryOperation string

const (
	InventoryIncrease InventoryOperation = "increase"
	InventoryDecrease InventoryOperation = "decrease"
	InventorySet      InventoryOperation = "set"
)

var validInventoryOperations = []InventoryOperation{
	InventoryIncrease,
	InventoryDecrease,
	InventorySet,
}

// IsValid reports whether the value is a known InventoryOperation.
func (o InventoryOperation) IsValid() bool {
	for _, candidate := range validInventoryOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseInventoryOperation converts raw input into an InventoryOperation.
func ParseInventoryOperation(value string) (InventoryOperation, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validInventoryOperations {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory operation %q", value)
}
