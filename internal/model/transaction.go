package model

import "time"

type AccountProvider struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Transaction struct {
	ID          int64     `json:"id"`
	ProviderID  int64     `json:"provider_id"`
	FromAccount string    `json:"from_account"`
	ToAccount   string    `json:"to_account"`
	Fees        float64   `json:"fees"`
	NetAmount   float64   `json:"net_amount"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type TransactionCreateRequest struct {
	ProviderID  int64   `json:"provider_id" validate:"required,gt=0"`
	FromAccount string  `json:"from_account" validate:"required,max=128"`
	ToAccount   string  `json:"to_account" validate:"required,max=128"`
	Fees        float64 `json:"fees" validate:"gte=0"`
	NetAmount   float64 `json:"net_amount" validate:"gte=0"`
	Details     string  `json:"details" validate:"max=1024"`
}

// Total is what the sender paid: the net amount plus provider fees.
func (r TransactionCreateRequest) Total() float64 {
	return r.NetAmount + r.Fees
}
