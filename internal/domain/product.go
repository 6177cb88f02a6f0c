package domain

import "time"

// Product is a catalog row as stored durably. CountInStock is the actual
// stock count; sellable stock is derived by subtracting live holds.
type Product struct {
	ID           string
	Name         string
	Description  string
	Price        float64
	ImageURL     string
	IsPublished  bool
	CountInStock int
	CreatedAt    time.Time
}
