package domain

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:140;uniqueIndex" json:"email"`
	Name         string    `gorm:"size:140" json:"name"`
	Phone        string    `gorm:"size:60" json:"phone"`
	LoyaltyCoins int64     `gorm:"default:0" json:"loyalty_coins"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
