package warehouses

import (
	"time"
)

// Warehouse is a storage site receiving and holding inventory.
type Warehouse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code" validate:"required,max=20"`
	Name      string    `json:"name" validate:"required,max=120"`
	Address   string    `json:"address" validate:"max=500"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
