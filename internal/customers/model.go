package customers

import "time"

// Customer is a party the depot receives goods for or ships goods to.
type Customer struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	City      *string   `json:"city,omitempty"`
	IsActive  bool      `json:"is_active"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
