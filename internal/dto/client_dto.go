package dto

// ── Request DTOs ──────────────────────────────────────────────────────────────

type CreateClientRequest struct {
	Name    string  `json:"name"    validate:"required,min=2,max=200"`
	Email   *string `json:"email"   validate:"omitempty,email"`
	Phone   *string `json:"phone"   validate:"omitempty,max=50"`
	Address *string `json:"address"`
}

type UpdateClientRequest struct {
	Name    *string `json:"name"    validate:"omitempty,min=2,max=200"`
	Email   *string `json:"email"   validate:"omitempty,email"`
	Phone   *string `json:"phone"   validate:"omitempty,max=50"`
	Address *string `json:"address"`
}

type ClientFilter struct {
	Search string `form:"search"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type ClientResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}
