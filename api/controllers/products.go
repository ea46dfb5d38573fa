package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/checkout-backend/api/responses"
	"github.com/angelmondragon/checkout-backend/api/validators"
	"github.com/angelmondragon/checkout-backend/internal/inventory"
	"github.com/angelmondragon/checkout-backend/internal/products"
	dbtypes "github.com/angelmondragon/checkout-backend/pkg/db/types"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

const maxCategoryLength = 100

// ListProducts returns the active catalogue, optionally filtered.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		filter, err := parseProductFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parseProductFilter(r *http.Request) (products.Filter, error) {
	minPrice, err := validators.ParseQueryDecimal(r, "minPrice")
	if err != nil {
		return products.Filter{}, err
	}
	maxPrice, err := validators.ParseQueryDecimal(r, "maxPrice")
	if err != nil {
		return products.Filter{}, err
	}
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		return products.Filter{}, pkgerrors.New(pkgerrors.CodeValidation, "minPrice must not exceed maxPrice")
	}
	inStock, err := validators.ParseQueryBool(r, "inStock")
	if err != nil {
		return products.Filter{}, err
	}
	return products.Filter{
		Category: validators.SanitizeString(r.URL.Query().Get("category"), maxCategoryLength),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		InStock:  inStock,
	}, nil
}

func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type variantRequest struct {
	Type  string `json:"type" validate:"required"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value" validate:"required"`
}

func toSelections(in []variantRequest) (dbtypes.VariantSelections, error) {
	out := make(dbtypes.VariantSelections, 0, len(in))
	for _, v := range in {
		vt, err := enums.ParseVariantType(v.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant type")
		}
		out = append(out, dbtypes.VariantSelection{Type: vt, Value: strings.TrimSpace(v.Value)})
	}
	return out, nil
}

type availabilityRequest struct {
	Quantity int              `json:"quantity" validate:"required,min=1"`
	Variants []variantRequest `json:"variants" validate:"omitempty,dive"`
}

// CheckAvailability answers whether the quantity can be sold right now. It
// never mutates stock.
func CheckAvailability(ledger inventory.Ledger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload availabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variants, err := toSelections(payload.Variants)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		availability, err := ledger.CheckAvailability(r.Context(), id, payload.Quantity, variants)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availability)
	}
}

type inventoryRequest struct {
	Quantity  int              `json:"quantity" validate:"min=0"`
	Operation string           `json:"operation" validate:"required"`
	Variants  []variantRequest `json:"variants" validate:"omitempty,dive"`
}

// UpdateInventory applies an operator stock change and returns the resulting
// counters.
func UpdateInventory(ledger inventory.Ledger, logg *logger.Logger) http.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		op, err := enums.ParseInventoryOperation(payload.Operation)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "operation must be increase, decrease or set"))
			return
		}
		variants, err := toSelections(payload.Variants)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithProductID(r.Context(), id.String())
		switch op {
		case enums.InventoryIncrease:
			err = ledger.Increase(ctx, id, payload.Quantity, variants)
		case enums.InventoryDecrease:
			err = ledger.Reduce(ctx, id, payload.Quantity, variants)
		case enums.InventorySet:
			err = ledger.SetInventory(ctx, id, payload.Quantity, variants)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stock, err := ledger.Snapshot(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithField(ctx, "operation", string(op)), "inventory.updated")
		responses.WriteSuccess(w, stock)
	}
}
