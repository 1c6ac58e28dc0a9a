package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Book represents a catalog listing. Stock is the shared mutable state that
// concurrent checkouts contend on; it must never go negative.
type Book struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Title           string           `gorm:"column:title;not null"`
	Author          string           `gorm:"column:author;not null"`
	Year            int              `gorm:"column:year;not null"`
	Description     string           `gorm:"column:description;not null"`
	Language        string           `gorm:"column:language;not null"`
	Category        string           `gorm:"column:category;not null"`
	ISBN            string           `gorm:"column:isbn;not null;uniqueIndex"`
	Price           decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent *decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2)"`
	Stock           int              `gorm:"column:stock;not null;default:0"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
