package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is the live profile keyed by email.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FullName  string    `gorm:"column:full_name;not null"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:ux_customers_email"`
	Phone     string    `gorm:"column:phone;not null"`
	Address   Address   `gorm:"embedded;embeddedPrefix:address_"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Address is stored inline on the customer row.
type Address struct {
	Street  string `gorm:"column:street"`
	City    string `gorm:"column:city"`
	State   string `gorm:"column:state"`
	ZipCode string `gorm:"column:zip_code"`
	Country string `gorm:"column:country"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
