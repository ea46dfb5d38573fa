package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
)

// ProductDTO is the storefront view of a product.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Inventory   int             `json:"inventory"`
	IsActive    bool            `json:"isActive"`
	Variants    []VariantDTO    `json:"variants"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type VariantDTO struct {
	ID    uuid.UUID `json:"id"`
	Type  string    `json:"type"`
	Name  string    `json:"name"`
	Value string    `json:"value"`
	Stock int       `json:"stock"`
}

// ListResult is the GET /api/products payload.
type ListResult struct {
	Products []ProductDTO `json:"products"`
	Count    int          `json:"count"`
}

func toProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.ImageURL,
		Category:    p.Category,
		Inventory:   p.Inventory,
		IsActive:    p.IsActive,
		Variants:    make([]VariantDTO, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants {
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:    v.ID,
			Type:  string(v.Type),
			Name:  v.Name,
			Value: v.Value,
			Stock: v.Stock,
		})
	}
	return dto
}
