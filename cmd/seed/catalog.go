package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// sampleProduct is the storefront's single product. Variant stock adds up to
// the product inventory.
func sampleProduct() models.Product {
	return models.Product{
		Name:        "Premium Wireless Headphones",
		Description: "Experience crystal-clear audio with our premium wireless headphones featuring active noise cancellation, 30-hour battery life, and premium comfort padding.",
		Price:       decimal.RequireFromString("199.99"),
		ImageURL:    "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500&h=500&fit=crop",
		Category:    "Electronics",
		Inventory:   50,
		IsActive:    true,
		Variants: []models.ProductVariant{
			{Type: enums.VariantTypeColor, Name: "Midnight Black", Value: "black", Stock: 20},
			{Type: enums.VariantTypeColor, Name: "Pearl White", Value: "white", Stock: 15},
			{Type: enums.VariantTypeColor, Name: "Space Gray", Value: "gray", Stock: 15},
		},
	}
}

type seedResult struct {
	Product *models.Product
	Created bool
}

// seedCatalog inserts product unless one with the same name exists. With
// restock set, an existing product gets its inventory and variant stock reset
// to the seed values.
func seedCatalog(ctx context.Context, tx *gorm.DB, product models.Product, restock bool) (seedResult, error) {
	var existing models.Product
	err := tx.WithContext(ctx).Preload("Variants").Where("name = ?", product.Name).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
			return seedResult{}, fmt.Errorf("create product: %w", err)
		}
		return seedResult{Product: &product, Created: true}, nil
	case err != nil:
		return seedResult{}, fmt.Errorf("load product: %w", err)
	}

	if !restock {
		return seedResult{Product: &existing}, nil
	}

	if err := tx.WithContext(ctx).Model(&existing).Update("inventory", product.Inventory).Error; err != nil {
		return seedResult{}, fmt.Errorf("restock product: %w", err)
	}
	existing.Inventory = product.Inventory
	for _, want := range product.Variants {
		variant, ok := existing.FindVariant(want.Type, want.Value)
		if !ok {
			want.ProductID = existing.ID
			if err := tx.WithContext(ctx).Create(&want).Error; err != nil {
				return seedResult{}, fmt.Errorf("add variant %s: %w", want.Value, err)
			}
			existing.Variants = append(existing.Variants, want)
			continue
		}
		if err := tx.WithContext(ctx).Model(variant).Update("stock", want.Stock).Error; err != nil {
			return seedResult{}, fmt.Errorf("restock variant %s: %w", want.Value, err)
		}
		variant.Stock = want.Stock
	}
	return seedResult{Product: &existing}, nil
}
