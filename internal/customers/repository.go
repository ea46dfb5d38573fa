// Package customers keeps the live customer profile, keyed by email.
package customers

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/checkout-backend/pkg/db"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

const emailConstraint = "ux_customers_email"

// Input is the customer block of a checkout request.
type Input struct {
	FullName string
	Email    string
	Phone    string
	Address  models.Address
}

// Repository upserts customers. Concurrent profile edits are last-writer-wins.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, in Input) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NormalizeEmail is the key customers are stored under.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return &customer, nil
}

// Upsert creates the customer or merges the non-empty incoming fields into
// the existing profile. Losing an insert race to another request for the same
// email falls back to the merge path.
func (r *repository) Upsert(ctx context.Context, in Input) (*models.Customer, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}

	existing, err := r.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return r.merge(ctx, existing, in)
	case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return nil, err
	}

	customer := &models.Customer{
		FullName: strings.TrimSpace(in.FullName),
		Email:    email,
		Phone:    strings.TrimSpace(in.Phone),
		Address:  trimAddress(in.Address),
	}
	// Savepoint so a lost race does not abort an enclosing transaction.
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(customer).Error
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, emailConstraint) || dbpkg.IsUniqueViolation(err, "customers.email") {
			existing, findErr := r.FindByEmail(ctx, email)
			if findErr != nil {
				return nil, findErr
			}
			return r.merge(ctx, existing, in)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return customer, nil
}

func (r *repository) merge(ctx context.Context, existing *models.Customer, in Input) (*models.Customer, error) {
	updates := map[string]any{}
	set := func(column, current, incoming string) {
		incoming = strings.TrimSpace(incoming)
		if incoming != "" && incoming != current {
			updates[column] = incoming
		}
	}
	set("full_name", existing.FullName, in.FullName)
	set("phone", existing.Phone, in.Phone)
	set("address_street", existing.Address.Street, in.Address.Street)
	set("address_city", existing.Address.City, in.Address.City)
	set("address_state", existing.Address.State, in.Address.State)
	set("address_zip_code", existing.Address.ZipCode, in.Address.ZipCode)
	set("address_country", existing.Address.Country, in.Address.Country)
	if len(updates) == 0 {
		return existing, nil
	}

	if err := r.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
	}
	return r.FindByEmail(ctx, existing.Email)
}

func trimAddress(a models.Address) models.Address {
	return models.Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}
