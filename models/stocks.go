package models

import (
	"time"

	"gorm.io/gorm"
)

type StockPrice struct {
	gorm.Model
	Symbol    string    `gorm:"index"`
	Price     float64
	Timestamp time.Time
}
