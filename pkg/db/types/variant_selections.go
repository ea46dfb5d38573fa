package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// VariantSelection is one chosen option, e.g. color=red.
type VariantSelection struct {
	Type  enums.VariantType `json:"type"`
	Value string            `json:"value"`
}

// Label renders the selection as "type: value" for messages and emails.
func (v VariantSelection) Label() string {
	return fmt.Sprintf("%s: %s", v.Type, v.Value)
}

// VariantSelections is persisted as a JSON array.
type VariantSelections []VariantSelection

func (s *VariantSelections) Scan(src any) error {
	if src == nil {
		*s = VariantSelections{}
		return nil
	}

	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("VariantSelections: unsupported Scan type %T", src)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		*s = VariantSelections{}
		return nil
	}

	var out VariantSelections
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fmt.Errorf("VariantSelections: %w", err)
	}
	*s = out
	return nil
}

func (s VariantSelections) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	payload, err := json.Marshal([]VariantSelection(s))
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}
